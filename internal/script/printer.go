package script

import (
	"strconv"
	"strings"
)

// String renders the pipeline back into its canonical script form. The
// output always re-parses to the same steps (kinds, ops and arguments),
// independent of how the original source was spaced or quoted; only
// each Step.Pos, a byte offset into the parsed text, can differ.
func (p *Pipeline) String() string {
	var b strings.Builder
	for i, step := range p.Steps {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(step.Op)
		if len(step.Args) > 0 {
			b.WriteByte('(')
			for j, a := range step.Args {
				if j > 0 {
					b.WriteByte(',')
				}
				b.WriteString(printArg(a))
			}
			b.WriteByte(')')
		}
	}
	return b.String()
}

func printArg(a Arg) string {
	if a.IsInt {
		return strconv.Itoa(a.Int)
	}
	if isBarePlaceholder(a.Raw) {
		return a.Raw
	}
	return `"` + escapeQuoted(a.Raw) + `"`
}

// isBarePlaceholder reports whether the argument is exactly one
// ${name} reference with nothing else around it — the unquoted form.
func isBarePlaceholder(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") && !strings.Contains(s[2:len(s)-1], "${")
}

func escapeQuoted(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
