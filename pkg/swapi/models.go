// Package swapi turns SWAPI people records into flat rows: it fetches a
// record, resolves its reference URLs to labels and builds a Row.
package swapi

import (
	"errors"
	"strings"
)

// Unknown is the label used for missing scalars and unresolvable resources.
const Unknown = "Unknown"

// ErrMalformedRecord marks a people record without a usable name.
var ErrMalformedRecord = errors.New("malformed record")

// Person is a raw people record as returned by GET /people/{id}/.
// Pointer scalars keep "absent" distinct from "".
type Person struct {
	Name      *string `json:"name"`
	BirthYear *string `json:"birth_year"`
	EyeColor  *string `json:"eye_color"`
	Gender    *string `json:"gender"`
	HairColor *string `json:"hair_color"`
	Height    *string `json:"height"`
	Mass      *string `json:"mass"`
	SkinColor *string `json:"skin_color"`
	URL       *string `json:"url"`
	Created   *string `json:"created"`
	Edited    *string `json:"edited"`

	Homeworld string   `json:"homeworld"`
	Films     []string `json:"films"`
	Species   []string `json:"species"`
	Starships []string `json:"starships"`
	Vehicles  []string `json:"vehicles"`
}

// HasName reports whether the record carries a non-empty name.
func (p *Person) HasName() bool {
	return p.Name != nil && *p.Name != ""
}

// Resource is any referenced document (film, planet, species, starship,
// vehicle). Only its label fields are decoded.
type Resource struct {
	Title *string `json:"title"`
	Name  *string `json:"name"`
}

// Label returns the title, else the name, else Unknown.
func (r *Resource) Label() string {
	switch {
	case r.Title != nil:
		return *r.Title
	case r.Name != nil:
		return *r.Name
	default:
		return Unknown
	}
}

// Row is the flattened, persisted form of one person.
// ID is the identifier from the fetch range, not the upstream's own id.
type Row struct {
	ID        int    `db:"id"`
	Name      string `db:"name"`
	BirthYear string `db:"birth_year"`
	EyeColor  string `db:"eye_color"`
	Films     string `db:"films"`
	Gender    string `db:"gender"`
	HairColor string `db:"hair_color"`
	Height    string `db:"height"`
	Homeworld string `db:"homeworld"`
	Mass      string `db:"mass"`
	SkinColor string `db:"skin_color"`
	Species   string `db:"species"`
	Starships string `db:"starships"`
	Vehicles  string `db:"vehicles"`
	URL       string `db:"url"`
	Created   string `db:"created"`
	Edited    string `db:"edited"`
}

// SkipReason explains why a record produced no row.
type SkipReason string

const (
	// SkipMalformed is used when the record has no name.
	SkipMalformed SkipReason = "malformed_record"

	// SkipTransport is used when the record or any of its references failed to load.
	SkipTransport SkipReason = "transport_error"
)

// Result is the outcome of enriching one identifier: a Row, or a reason.
type Result struct {
	ID     int
	Row    *Row
	Reason SkipReason
	Err    error
}

// OK reports whether the result carries a row.
func (r Result) OK() bool {
	return r.Reason == "" && r.Row != nil
}

// JoinLabels joins labels the way list columns are stored.
func JoinLabels(labels []string) string {
	return strings.Join(labels, ", ")
}

func orUnknown(s *string) string {
	if s == nil {
		return Unknown
	}
	return *s
}
