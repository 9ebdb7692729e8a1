package ast

import "github.com/sarn-lang/sarn/internal/lexer"

// RangeExpr represents a range expression: `start..end` (exclusive) or
// `start...end` (inclusive).
type RangeExpr struct {
	Start     Expr // Optional (nil if missing, e.g. ..end)
	End       Expr // Optional (nil if missing, e.g. start..)
	Inclusive bool
	span      lexer.Span
}

// Span returns the expression span.
func (e *RangeExpr) Span() lexer.Span { return e.span }

// SetSpan updates the expression span.
func (e *RangeExpr) SetSpan(span lexer.Span) { e.span = span }

// NewRangeExpr constructs a range expression node.
func NewRangeExpr(start, end Expr, inclusive bool, span lexer.Span) *RangeExpr {
	return &RangeExpr{
		Start:     start,
		End:       end,
		Inclusive: inclusive,
		span:      span,
	}
}

// exprNode marks RangeExpr as an expression.
func (*RangeExpr) exprNode() {}

