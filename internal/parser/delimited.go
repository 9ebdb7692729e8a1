package parser

import "github.com/sarn-lang/sarn/internal/lexer"

// delimitedConfig configures parseDelimited's closing token, separator, and
// diagnostic messages for a comma-separated list (args, params, type args,
// struct/dict/list literal elements).
type delimitedConfig struct {
	Closing             lexer.TokenType
	Separator           lexer.TokenType
	MissingElementMsg   string
	MissingSeparatorMsg string
}

type delimitedResult[T any] struct {
	Items []T
}

// parseDelimited parses a Closing-terminated, Separator-delimited list of T,
// with curTok positioned at the first element on entry and left positioned on
// Closing on exit. parseOne is called with the zero-based element index.
func parseDelimited[T any](p *Parser, cfg delimitedConfig, parseOne func(idx int) (T, bool)) (delimitedResult[T], bool) {
	var items []T

	idx := 0
	for {
		if p.curTok.Type == cfg.Closing {
			break
		}

		item, ok := parseOne(idx)
		if !ok {
			p.reportError(cfg.MissingElementMsg, p.curTok.Span)
			return delimitedResult[T]{}, false
		}
		items = append(items, item)
		idx++

		if p.peekTok.Type == cfg.Separator {
			p.nextToken() // move to separator
			p.nextToken() // move to next element (or closing, if trailing comma)
			continue
		}

		if p.peekTok.Type == cfg.Closing {
			p.nextToken() // move to closing
			break
		}

		p.reportError(cfg.MissingSeparatorMsg, p.peekTok.Span)
		return delimitedResult[T]{}, false
	}

	return delimitedResult[T]{Items: items}, true
}
