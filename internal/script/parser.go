package script

import "fmt"

type argKind int

const (
	argString argKind = iota
	argInt
)

type opSpec struct {
	kind Kind
	args []argKind
	// optionalTrailingInt marks ops (just substring) that accept one
	// extra trailing int argument beyond args.
	optionalTrailingInt bool
}

var opTable = map[string]opSpec{
	"select": {kind: KindSelector, args: []argKind{argString}},
	"parent": {kind: KindSelector, args: []argKind{argInt}},
	"prev":   {kind: KindSelector, args: []argKind{argInt}},
	"nth":    {kind: KindSelector, args: []argKind{argInt}},

	"html": {kind: KindAccessor, args: nil},
	"attr": {kind: KindAccessor, args: []argKind{argString}},
	"val":  {kind: KindAccessor, args: nil},

	"replace":       {kind: KindTransform, args: []argKind{argString, argString}},
	"uppercase":     {kind: KindTransform, args: nil},
	"lowercase":     {kind: KindTransform, args: nil},
	"insert":        {kind: KindTransform, args: []argKind{argInt, argString}},
	"prepend":       {kind: KindTransform, args: []argKind{argString}},
	"append":        {kind: KindTransform, args: []argKind{argString}},
	"delete":        {kind: KindTransform, args: []argKind{argString}},
	"regex_extract": {kind: KindTransform, args: []argKind{argString}},
	"regex_replace": {kind: KindTransform, args: []argKind{argString, argString}},
	"trim":          {kind: KindTransform, args: nil},
	"split":         {kind: KindTransform, args: []argKind{argString}},
	"substring":     {kind: KindTransform, args: []argKind{argInt}, optionalTrailingInt: true},

	"equals":      {kind: KindCondition, args: []argKind{argString}},
	"regex_match": {kind: KindCondition, args: []argKind{argString}},
}

// Parse compiles a script string into a typed Pipeline, or returns a
// ParseError carrying the byte offset of the first problem.
func Parse(src string) (*Pipeline, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	var steps []Step
	state := ElementProducing
	prevKind := Kind(-1)
	pos := 0

	for toks[pos].kind != tokEOF {
		if len(steps) > 0 {
			if toks[pos].kind != tokDot {
				return nil, &ParseError{Offset: toks[pos].pos, Message: "expected '.' between steps"}
			}
			pos++
		}

		if toks[pos].kind != tokIdent {
			return nil, &ParseError{Offset: toks[pos].pos, Message: "expected an operation name"}
		}
		identTok := toks[pos]
		pos++

		spec, ok := opTable[identTok.text]
		if !ok {
			return nil, &ParseError{Offset: identTok.pos, Message: fmt.Sprintf("unknown operation %q", identTok.text)}
		}

		var args []Arg
		if toks[pos].kind == tokLParen {
			pos++
			args, pos, err = parseArgList(toks, pos, spec, identTok)
			if err != nil {
				return nil, err
			}
			if toks[pos].kind != tokRParen {
				return nil, &ParseError{Offset: toks[pos].pos, Message: "expected ')'"}
			}
			pos++
		} else if len(spec.args) > 0 {
			return nil, &ParseError{Offset: identTok.pos, Message: fmt.Sprintf("%q requires arguments", identTok.text)}
		}

		if err := checkTransition(state, prevKind, spec.kind, identTok); err != nil {
			return nil, err
		}
		if spec.kind == KindAccessor || spec.kind == KindSelector {
			if spec.kind == KindSelector {
				state = ElementProducing
			} else {
				state = ValueProducing
			}
		}
		// Transform/Condition leave state unchanged (ValueProducing).

		steps = append(steps, Step{Kind: spec.kind, Op: identTok.text, Args: args, Pos: identTok.pos})
		prevKind = spec.kind
	}

	if len(steps) == 0 {
		return nil, &ParseError{Offset: 0, Message: "empty pipeline"}
	}

	return &Pipeline{Steps: steps, Type: state, Source: src}, nil
}

// checkTransition enforces §4.1's static validation rules: no
// transform/condition before the first accessor, no selector once a
// pipeline has started producing a value unless the immediately
// preceding step was a condition (which restores the pre-accessor
// cursor on pass), accessors only at the start or after a selector, and
// conditions only after an accessor (possibly via transforms).
func checkTransition(state Type, prevKind, kind Kind, tok token) error {
	switch kind {
	case KindSelector:
		if state == ValueProducing && prevKind != KindCondition {
			return &ParseError{Offset: tok.pos, Message: "selector step cannot follow a pipeline that has already started producing a value"}
		}
	case KindAccessor:
		if state != ElementProducing {
			return &ParseError{Offset: tok.pos, Message: "accessor step must follow a selector step"}
		}
	case KindTransform:
		if state != ValueProducing {
			return &ParseError{Offset: tok.pos, Message: "transform step must follow an accessor"}
		}
	case KindCondition:
		if state != ValueProducing {
			return &ParseError{Offset: tok.pos, Message: "condition step must follow an accessor"}
		}
	}
	return nil
}

func parseArgList(toks []token, pos int, spec opSpec, identTok token) ([]Arg, int, error) {
	var args []Arg
	first := true
	for toks[pos].kind != tokRParen {
		if !first {
			if toks[pos].kind != tokComma {
				return nil, pos, &ParseError{Offset: toks[pos].pos, Message: "expected ','"}
			}
			pos++
		}
		first = false

		t := toks[pos]
		switch t.kind {
		case tokString:
			args = append(args, strArg(t.text))
		case tokPlaceholder:
			args = append(args, strArg("${"+t.text+"}"))
		case tokInt:
			args = append(args, intArg(t.num))
		default:
			return nil, pos, &ParseError{Offset: t.pos, Message: "expected an argument"}
		}
		pos++
	}

	minArgs, maxArgs := len(spec.args), len(spec.args)
	if spec.optionalTrailingInt {
		maxArgs++
	}
	if len(args) < minArgs || len(args) > maxArgs {
		return nil, pos, &ParseError{Offset: identTok.pos, Message: fmt.Sprintf("%q expects %s arguments, got %d", identTok.text, argCountDesc(minArgs, maxArgs), len(args))}
	}

	kinds := append([]argKind{}, spec.args...)
	if len(args) > len(spec.args) {
		kinds = append(kinds, argInt)
	}
	for i, a := range args {
		wantInt := kinds[i] == argInt
		if wantInt && !a.IsInt {
			return nil, pos, &ParseError{Offset: identTok.pos, Message: fmt.Sprintf("%q argument %d must be an integer", identTok.text, i+1)}
		}
		if !wantInt && a.IsInt {
			return nil, pos, &ParseError{Offset: identTok.pos, Message: fmt.Sprintf("%q argument %d must be a string", identTok.text, i+1)}
		}
	}

	return args, pos, nil
}

func argCountDesc(min, max int) string {
	if min == max {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("%d-%d", min, max)
}
