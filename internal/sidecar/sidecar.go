// Package sidecar builds the Kodi-compatible NFO XML sidecar file from
// a scraped metadata record (spec §3, §6).
//
// Kodi's NFO schema is a small, fixed, already-standardized element set
// with no attributes worth a general-purpose mapping layer; every
// example repo in this corpus that emits XML (none do, in fact) would
// reach for the standard library for a shape this narrow, so this
// package uses encoding/xml directly rather than pulling in a
// templating or serialization dependency for one struct.
package sidecar

import (
	"encoding/xml"
	"fmt"
)

// Record is the fixed schema fed to the sidecar generator (spec §3).
// Required fields are ID and Title; the pipeline driver aborts the
// record before it ever reaches this package if either is absent.
type Record struct {
	ID             string
	Title          string
	OriginalTitle  string
	Year           int
	Studio         string
	Series         string
	Director       string
	Actors         []Actor
	Genres         []string
	CoverURL       string
	PreviewURLs    []string
	Plot           string
	PlotTranslated bool
	SourceTemplate string
}

// Actor is one cast entry (spec §6's nested actor/name/role).
type Actor struct {
	Name string
	Role string
}

// Validate enforces the two required fields named in spec §3. The
// pipeline driver calls this during validating, before staging a
// transaction.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("sidecar: record missing required field id")
	}
	if r.Title == "" {
		return fmt.Errorf("sidecar: record missing required field title")
	}
	return nil
}

// xmlMovie mirrors spec §6's exact, stable emission order. Optional
// fields use omitempty so an absent value is omitted rather than
// emitted empty, per spec's explicit requirement.
type xmlMovie struct {
	XMLName       xml.Name    `xml:"movie"`
	Title         string      `xml:"title"`
	OriginalTitle string      `xml:"originaltitle,omitempty"`
	Year          int         `xml:"year,omitempty"`
	Plot          string      `xml:"plot,omitempty"`
	Studio        string      `xml:"studio,omitempty"`
	Director      string      `xml:"director,omitempty"`
	Genres        []string    `xml:"genre,omitempty"`
	Actors        []xmlActor  `xml:"actor,omitempty"`
	UniqueID      xmlUniqueID `xml:"uniqueid"`
}

type xmlActor struct {
	Name string `xml:"name"`
	Role string `xml:"role,omitempty"`
}

type xmlUniqueID struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// Render serializes r into the UTF-8 XML sidecar body, including the
// XML declaration.
func Render(r Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	m := xmlMovie{
		Title:         r.Title,
		OriginalTitle: r.OriginalTitle,
		Year:          r.Year,
		Plot:          r.Plot,
		Studio:        r.Studio,
		Director:      r.Director,
		Genres:        r.Genres,
		UniqueID:      xmlUniqueID{Type: "catalog", Value: r.ID},
	}
	for _, a := range r.Actors {
		m.Actors = append(m.Actors, xmlActor{Name: a.Name, Role: a.Role})
	}

	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sidecar: marshal: %w", err)
	}

	out := []byte(xml.Header)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}
