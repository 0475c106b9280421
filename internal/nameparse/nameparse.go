// Package nameparse extracts a canonical catalog ID from a video file's
// basename (spec §4.6).
package nameparse

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upperCaser = cases.Upper(language.Und)

// canonicalForm matches the target shape: one or more letters, a
// separator, one or more digits.
var canonicalForm = regexp.MustCompile(`^[A-Z]+-[0-9]+$`)

var separatorRun = regexp.MustCompile(`[ _.\-]+`)

// ErrUnrecognized is returned when no canonical catalog ID could be
// derived from the filename; the driver treats this as skip, not fatal.
var ErrUnrecognized = fmt.Errorf("nameparse: filename has no recognizable catalog id")

// Extract derives the canonical catalog ID from path, stripping every
// string in strip (case-insensitively, in order), collapsing separator
// runs to a single hyphen, and uppercasing before the final canonical
// form check.
func Extract(path string, strip []string) (string, error) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for _, s := range strip {
		if s == "" {
			continue
		}
		base = stripCaseInsensitive(base, s)
	}

	base = separatorRun.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	base = upperCaser.String(base)

	if !canonicalForm.MatchString(base) {
		return "", ErrUnrecognized
	}
	return base, nil
}

func stripCaseInsensitive(s, substr string) string {
	lower := strings.ToLower(s)
	target := strings.ToLower(substr)
	var b strings.Builder
	for {
		idx := strings.Index(lower, target)
		if idx < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:idx])
		s = s[idx+len(substr):]
		lower = lower[idx+len(target):]
	}
	return b.String()
}
