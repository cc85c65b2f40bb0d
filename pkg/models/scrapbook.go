package models

// SchemaVersion is the current version tag of the persisted document.
const SchemaVersion = "1.0"

// Document is the versioned root of all scrapbook data. It is the exact JSON
// shape every storage strategy reads and writes:
//
//	{"version":"1.0","scrapbooks":{"2025":{...}}}
//
// Map keys are years; encoding/json renders them as strings, which matches
// the published scrapbooks.json format.
type Document struct {
	Version    string             `json:"version"`
	Scrapbooks map[int]*Scrapbook `json:"scrapbooks"`
}

// Scrapbook is one year's set of monthly photos plus an optional song.
// At most one photo per month is meaningful, but the model does not enforce
// it; callers remove the old month's photo before adding a replacement.
type Scrapbook struct {
	Year      int     `json:"year"`
	Photos    []Photo `json:"photos"`
	Song      *Song   `json:"song,omitempty"`
	CreatedAt string  `json:"createdAt"` // RFC 3339
	UpdatedAt string  `json:"updatedAt"` // RFC 3339, refreshed on every mutation
}

type Photo struct {
	ID         string `json:"id"`    // caller-generated, unique within the scrapbook
	URL        string `json:"url"`   // resolved resource location, opaque here
	Month      int    `json:"month"` // 1-12
	Title      string `json:"title,omitempty"`
	UploadedAt string `json:"uploadedAt"`
}

type Song struct {
	VideoID string `json:"videoId"` // external platform identifier
	Title   string `json:"title"`
	URL     string `json:"url"` // original submitted URL
	AddedAt string `json:"addedAt"`
}

// NewDocument returns a fresh empty document at the current schema version.
func NewDocument() *Document {
	return &Document{
		Version:    SchemaVersion,
		Scrapbooks: make(map[int]*Scrapbook),
	}
}

// Clone returns a deep copy. The store treats documents as immutable values
// replaced wholesale on each mutation, so a clone must share no slices or
// pointers with the original.
func (d *Document) Clone() *Document {
	out := &Document{
		Version:    d.Version,
		Scrapbooks: make(map[int]*Scrapbook, len(d.Scrapbooks)),
	}
	for year, sb := range d.Scrapbooks {
		out.Scrapbooks[year] = sb.Clone()
	}
	return out
}

// Clone returns a deep copy of the scrapbook.
func (s *Scrapbook) Clone() *Scrapbook {
	out := *s
	out.Photos = make([]Photo, len(s.Photos))
	copy(out.Photos, s.Photos)
	if s.Song != nil {
		song := *s.Song
		out.Song = &song
	}
	return &out
}
