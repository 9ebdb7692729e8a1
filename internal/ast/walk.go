package ast

// Walk traverses the AST starting from node, calling fn for each node.
// If fn returns false, Walk stops traversing that branch.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *File:
		for _, use := range n.Uses {
			Walk(use, fn)
		}
		for _, decl := range n.Decls {
			Walk(decl, fn)
		}

	case *UseDecl:
		if n.Alias != nil {
			Walk(n.Alias, fn)
		}
		if n.Path != nil {
			Walk(n.Path, fn)
		}

	case *FnDecl:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		for _, tp := range n.TypeParams {
			Walk(tp, fn)
		}
		for _, param := range n.Params {
			Walk(param, fn)
		}
		if n.ReturnType != nil {
			Walk(n.ReturnType, fn)
		}
		for _, thr := range n.Throws {
			Walk(thr, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *TypeParam:
		if n.Name != nil {
			Walk(n.Name, fn)
		}

	case *StructDecl:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		for _, tp := range n.TypeParams {
			Walk(tp, fn)
		}
		for _, field := range n.Fields {
			Walk(field, fn)
		}

	case *EnumDecl:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		for _, tp := range n.TypeParams {
			Walk(tp, fn)
		}
		for _, variant := range n.Variants {
			Walk(variant, fn)
		}

	case *ErrorDecl:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		for _, variant := range n.Variants {
			Walk(variant, fn)
		}

	case *ConstDecl:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		if n.Type != nil {
			Walk(n.Type, fn)
		}
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *TestDecl:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *Param:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		if n.Type != nil {
			Walk(n.Type, fn)
		}

	case *StructField:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		if n.Type != nil {
			Walk(n.Type, fn)
		}

	case *EnumVariant:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		for _, payload := range n.Payloads {
			Walk(payload, fn)
		}

	case *BlockExpr:
		for _, stmt := range n.Stmts {
			Walk(stmt, fn)
		}
		if n.Tail != nil {
			Walk(n.Tail, fn)
		}

	case *VarStmt:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		if n.Type != nil {
			Walk(n.Type, fn)
		}
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *ReturnStmt:
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *ThrowStmt:
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *ExprStmt:
		if n.Expr != nil {
			Walk(n.Expr, fn)
		}

	case *IfClause:
		if n.Condition != nil {
			Walk(n.Condition, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *IfStmt:
		for _, clause := range n.Clauses {
			Walk(clause, fn)
		}
		if n.Else != nil {
			Walk(n.Else, fn)
		}

	case *IfExpr:
		for _, clause := range n.Clauses {
			Walk(clause, fn)
		}
		if n.Else != nil {
			Walk(n.Else, fn)
		}

	case *UnlessStmt:
		if n.Condition != nil {
			Walk(n.Condition, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}
		if n.Else != nil {
			Walk(n.Else, fn)
		}

	case *WhileStmt:
		if n.Condition != nil {
			Walk(n.Condition, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *UntilStmt:
		if n.Condition != nil {
			Walk(n.Condition, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *MatchExpr:
		if n.Subject != nil {
			Walk(n.Subject, fn)
		}
		for _, arm := range n.Arms {
			Walk(arm, fn)
		}

	case *MatchArm:
		if n.Pattern != nil {
			Walk(n.Pattern, fn)
		}
		if n.Guard != nil {
			Walk(n.Guard, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *InfixExpr:
		if n.Left != nil {
			Walk(n.Left, fn)
		}
		if n.Right != nil {
			Walk(n.Right, fn)
		}

	case *CoalesceExpr:
		if n.Left != nil {
			Walk(n.Left, fn)
		}
		if n.Right != nil {
			Walk(n.Right, fn)
		}

	case *PrefixExpr:
		if n.Expr != nil {
			Walk(n.Expr, fn)
		}

	case *PostfixExpr:
		if n.Expr != nil {
			Walk(n.Expr, fn)
		}

	case *RangeExpr:
		if n.Start != nil {
			Walk(n.Start, fn)
		}
		if n.End != nil {
			Walk(n.End, fn)
		}

	case *CallExpr:
		if n.Callee != nil {
			Walk(n.Callee, fn)
		}
		for _, arg := range n.Args {
			Walk(arg, fn)
		}

	case *CatchExpr:
		if n.Target != nil {
			Walk(n.Target, fn)
		}
		if n.ErrName != nil {
			Walk(n.ErrName, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *FunctionLiteral:
		for _, param := range n.Params {
			Walk(param, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *IndexExpr:
		if n.Target != nil {
			Walk(n.Target, fn)
		}
		if n.Index != nil {
			Walk(n.Index, fn)
		}

	case *FieldExpr:
		if n.Target != nil {
			Walk(n.Target, fn)
		}
		if n.Field != nil {
			Walk(n.Field, fn)
		}

	case *StructLiteral:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		for _, field := range n.Fields {
			Walk(field, fn)
		}

	case *StructLiteralField:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *ListLiteral:
		if n.Type != nil {
			Walk(n.Type, fn)
		}
		for _, elem := range n.Elements {
			Walk(elem, fn)
		}

	case *DictLiteral:
		for _, entry := range n.Entries {
			Walk(entry, fn)
		}

	case *DictEntry:
		if n.Key != nil {
			Walk(n.Key, fn)
		}
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *TemplateLit:
		for _, expr := range n.Exprs {
			Walk(expr, fn)
		}

	case *AssignExpr:
		if n.Target != nil {
			Walk(n.Target, fn)
		}
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *NamedType:
		if n.Name != nil {
			Walk(n.Name, fn)
		}

	case *GenericType:
		if n.Base != nil {
			Walk(n.Base, fn)
		}
		for _, arg := range n.Args {
			Walk(arg, fn)
		}

	case *OptionalType:
		if n.Inner != nil {
			Walk(n.Inner, fn)
		}

	case *FunctionType:
		for _, param := range n.Params {
			Walk(param, fn)
		}
		if n.Return != nil {
			Walk(n.Return, fn)
		}
		for _, thr := range n.Throws {
			Walk(thr, fn)
		}

	case *PatternWild:
		// No children to traverse

	case *PatternIdent:
		if n.Name != nil {
			Walk(n.Name, fn)
		}

	case *PatternPath:
		for _, seg := range n.Segments {
			Walk(seg, fn)
		}

	case *PatternLiteral:
		if n.Expr != nil {
			Walk(n.Expr, fn)
		}

	case *PatternRange:
		if n.Start != nil {
			Walk(n.Start, fn)
		}
		if n.End != nil {
			Walk(n.End, fn)
		}

	case *PatternStructField:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		if n.Pattern != nil {
			Walk(n.Pattern, fn)
		}

	case *PatternStruct:
		if n.Name != nil {
			Walk(n.Name, fn)
		}
		for _, field := range n.Fields {
			Walk(field, fn)
		}

	case *PatternEnum:
		if n.Path != nil {
			Walk(n.Path, fn)
		}
		for _, elem := range n.Elements {
			Walk(elem, fn)
		}

	case *PatternRest:
		if n.Binding != nil {
			Walk(n.Binding, fn)
		}

	case *PatternSlice:
		for _, elem := range n.Elements {
			Walk(elem, fn)
		}

	case *PatternOr:
		for _, pat := range n.Patterns {
			Walk(pat, fn)
		}

	case *PatternParen:
		if n.Pattern != nil {
			Walk(n.Pattern, fn)
		}

	// Leaf nodes don't need traversal
	case *Ident, *IntegerLit, *FloatLit, *StringLit, *BoolLit, *NilLit:
		// No children to traverse
	}
}
