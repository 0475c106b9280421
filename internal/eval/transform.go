package eval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jav-tidy/javtidy/internal/script"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveString substitutes every ${name} occurrence in raw with its
// bound value from env. Exported for the workflow runner, which
// resolves a template's entrypoint URL the same way a script resolves
// a string argument.
func ResolveString(raw string, env Environment) (string, error) {
	return resolveString(raw, env)
}

// resolveString substitutes every ${name} occurrence in raw with its
// bound value from env. An unbound placeholder is a runtime error, per
// §4.1.
func resolveString(raw string, env Environment) (string, error) {
	var firstErr error
	resolved := placeholderPattern.ReplaceAllStringFunc(raw, func(match string) string {
		if firstErr != nil {
			return ""
		}
		name := match[2 : len(match)-1]
		v, ok := env.First(name)
		if !ok {
			firstErr = fmt.Errorf("eval: unbound placeholder %q", name)
			return ""
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return resolved, nil
}

// resolveArg resolves a script.Arg into a usable string (for string
// args) against env; int args pass through untouched.
func resolveArg(a script.Arg, env Environment) (string, error) {
	if a.IsInt {
		return strconv.Itoa(a.Int), nil
	}
	return resolveString(a.Raw, env)
}

var upperCaser = cases.Upper(language.Und)
var lowerCaser = cases.Lower(language.Und)

// applyTransform runs one transform step against a single string value.
// Every transform here is total on strings: it always returns a string,
// matching §8's termination property (compilable script + DOM always
// terminates).
func applyTransform(op string, args []script.Arg, env Environment, s string) (string, error) {
	switch op {
	case "uppercase":
		return upperCaser.String(s), nil
	case "lowercase":
		return lowerCaser.String(s), nil
	case "trim":
		return strings.TrimSpace(s), nil
	case "replace":
		a, err := resolveArg(args[0], env)
		if err != nil {
			return "", err
		}
		b, err := resolveArg(args[1], env)
		if err != nil {
			return "", err
		}
		return strings.ReplaceAll(s, a, b), nil
	case "delete":
		a, err := resolveArg(args[0], env)
		if err != nil {
			return "", err
		}
		return strings.ReplaceAll(s, a, ""), nil
	case "prepend":
		a, err := resolveArg(args[0], env)
		if err != nil {
			return "", err
		}
		return a + s, nil
	case "append":
		a, err := resolveArg(args[0], env)
		if err != nil {
			return "", err
		}
		return s + a, nil
	case "insert":
		pos := args[0].Int
		ins, err := resolveArg(args[1], env)
		if err != nil {
			return "", err
		}
		return insertAt(s, pos, ins), nil
	case "substring":
		a := args[0].Int
		b := -1
		if len(args) > 1 {
			b = args[1].Int
		}
		return substring(s, a, b), nil
	case "regex_extract":
		pat, err := resolveArg(args[0], env)
		if err != nil {
			return "", err
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return "", fmt.Errorf("eval: regex_extract: %w", err)
		}
		m := re.FindStringSubmatch(s)
		if m == nil {
			return "", nil
		}
		if len(m) > 1 {
			return m[1], nil
		}
		return m[0], nil
	case "regex_replace":
		pat, err := resolveArg(args[0], env)
		if err != nil {
			return "", err
		}
		repl, err := resolveArg(args[1], env)
		if err != nil {
			return "", err
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return "", fmt.Errorf("eval: regex_replace: %w", err)
		}
		return re.ReplaceAllString(s, repl), nil
	default:
		return "", fmt.Errorf("eval: unknown transform %q", op)
	}
}

// insertAt inserts ins at the 0-based character position pos, appending
// when pos exceeds the string's rune length.
func insertAt(s string, pos int, ins string) string {
	runes := []rune(s)
	if pos < 0 {
		pos = 0
	}
	if pos >= len(runes) {
		return s + ins
	}
	return string(runes[:pos]) + ins + string(runes[pos:])
}

// substring returns the character slice [a,b) with saturating bounds; b
// of -1 means "to end".
func substring(s string, a, b int) string {
	runes := []rune(s)
	n := len(runes)
	if a < 0 {
		a = 0
	}
	if a > n {
		a = n
	}
	end := n
	if b >= 0 {
		end = b
	}
	if end > n {
		end = n
	}
	if end < a {
		return ""
	}
	return string(runes[a:end])
}

// evalCondition runs an equals/regex_match condition against s.
func evalCondition(op string, args []script.Arg, env Environment, s string) (bool, error) {
	switch op {
	case "equals":
		want, err := resolveArg(args[0], env)
		if err != nil {
			return false, err
		}
		return s == want, nil
	case "regex_match":
		pat, err := resolveArg(args[0], env)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return false, fmt.Errorf("eval: regex_match: %w", err)
		}
		return re.MatchString(s), nil
	default:
		return false, fmt.Errorf("eval: unknown condition %q", op)
	}
}
