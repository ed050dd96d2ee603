package domain

import "time"

// File is an imported catalog.
type File struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Path      string    `json:"path"`
	Format    string    `json:"format"` // ts, csv
	Locale    string    `json:"locale"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Unit is one catalog message. Key is catalog.MessageKey of its context,
// source and comment, unique per file.
type Unit struct {
	ID                int64      `json:"id"`
	FileID            int64      `json:"file_id"`
	Key               string     `json:"key"`
	Context           string     `json:"context"`
	SourceText        string     `json:"source_text"`
	Comment           string     `json:"comment"`
	OldSource         string     `json:"old_source"`
	ExtraComment      string     `json:"extra_comment"`
	TranslatorComment string     `json:"translator_comment"`
	Numerus           bool       `json:"numerus"`
	Locations         []Location `json:"locations"`
	Position          int        `json:"position"`
	CreatedAt         time.Time  `json:"created_at"`
}

type Location struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
}
