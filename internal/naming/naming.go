// Package naming computes the output filesystem layout for a committed
// metadata record: path substitution from a naming template (spec §6)
// and the multi-actor linking policy (spec §4.9's "additional actor"
// step).
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jav-tidy/javtidy/internal/sidecar"
)

// MultiActorStrategy selects how actors beyond the first are
// represented in the output layout.
type MultiActorStrategy string

const (
	FirstOnly MultiActorStrategy = "first_only"
	Merge     MultiActorStrategy = "merge"
	Symlink   MultiActorStrategy = "symlink"
	Hardlink  MultiActorStrategy = "hardlink"
)

const unknownValue = "Unknown"

var illegalPathChars = regexp.MustCompile(`[<>:"|?*\x00-\x1f]`)

// sanitize strips characters that are illegal in a path component on
// common filesystems, leaving path separators alone (callers substitute
// whole components, not raw paths).
func sanitize(s string) string {
	return illegalPathChars.ReplaceAllString(s, "")
}

// variables builds the $name$ substitution table for r, per spec §6:
// $id$ $title$ $original_title$ $year$ $series$ $actor$ $director$
// $studio$ $genre$. actor is passed in separately since its value
// depends on the multi-actor strategy being applied.
func variables(r sidecar.Record, actor string) map[string]string {
	v := map[string]string{
		"id":             r.ID,
		"title":          r.Title,
		"original_title": r.OriginalTitle,
		"series":         r.Series,
		"actor":          actor,
		"director":       r.Director,
		"studio":         r.Studio,
	}
	if r.Year > 0 {
		v["year"] = fmt.Sprintf("%d", r.Year)
	}
	if len(r.Genres) > 0 {
		v["genre"] = r.Genres[0]
	}
	for k, val := range v {
		if val == "" {
			v[k] = unknownValue
		} else {
			v[k] = sanitize(val)
		}
	}
	return v
}

var placeholder = regexp.MustCompile(`\$([a-z_]+)\$`)

// Expand substitutes every $name$ placeholder in tmpl using variables
// built from r and the given primary actor name. Path separators in
// tmpl pass through untouched, becoming directory boundaries.
func Expand(tmpl string, r sidecar.Record, actor string) string {
	vars := variables(r, actor)
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return unknownValue
	})
}

// PrimaryActor returns the actor name used for the main output path:
// the first credited actor, or "Unknown" if the record has none.
func PrimaryActor(r sidecar.Record) string {
	if len(r.Actors) == 0 {
		return unknownValue
	}
	return r.Actors[0].Name
}

// MergedActors joins every credited actor's name with " & ", for the
// merge multi-actor strategy.
func MergedActors(r sidecar.Record) string {
	names := make([]string, len(r.Actors))
	for i, a := range r.Actors {
		names[i] = a.Name
	}
	return strings.Join(names, " & ")
}
