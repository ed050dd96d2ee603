package domain

import "time"

// Project groups catalogs that share a source language and a TS context
// for template lookups.
type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	SourceLang string    `json:"source_lang"`
	Context    string    `json:"context"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProjectLocale is a target language of a project.
type ProjectLocale struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
}
