// Package record builds a sidecar.Record from a workflow run's
// flattened scrape bindings (spec §3's "Metadata record", §4.7's
// "validating" state).
//
// The dotted-path-to-field convention a template author must follow is
// an Open Question spec.md leaves to the implementation: every
// recognized field is read from "main.<field>" (id, title,
// original_title, year, studio, series, director, genres, cover,
// previews, plot), with the nested actor list read from
// "main.actors.name" / "main.actors.role", paired by position — both
// are emitted once per matched actor element in the same document
// order, so index i of one always corresponds to index i of the
// other. See DESIGN.md.
package record

import (
	"strconv"

	"github.com/jav-tidy/javtidy/internal/sidecar"
	"github.com/jav-tidy/javtidy/internal/workflow"
)

// Build flattens bindings into a sidecar.Record, tagging it with
// sourceTemplate (the template filename that produced it, spec §4.5's
// search stopping at the first complete record).
func Build(bindings workflow.Bindings, sourceTemplate string) sidecar.Record {
	r := sidecar.Record{
		ID:             scalar(bindings, "main.id"),
		Title:          scalar(bindings, "main.title"),
		OriginalTitle:  scalar(bindings, "main.original_title"),
		Studio:         scalar(bindings, "main.studio"),
		Series:         scalar(bindings, "main.series"),
		Director:       scalar(bindings, "main.director"),
		Genres:         bindings["main.genres"],
		CoverURL:       scalar(bindings, "main.cover"),
		PreviewURLs:    bindings["main.previews"],
		Plot:           scalar(bindings, "main.plot"),
		SourceTemplate: sourceTemplate,
	}
	if y, err := strconv.Atoi(scalar(bindings, "main.year")); err == nil {
		r.Year = y
	}

	names := bindings["main.actors.name"]
	roles := bindings["main.actors.role"]
	for i, name := range names {
		role := ""
		if i < len(roles) {
			role = roles[i]
		}
		r.Actors = append(r.Actors, sidecar.Actor{Name: name, Role: role})
	}

	return r
}

// scalar returns the first bound value at key, or "" if the key is
// absent or empty (spec §4.4's missing-vs-blank distinction collapses
// to "" either way once a record field is this simple).
func scalar(b workflow.Bindings, key string) string {
	v := b[key]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
