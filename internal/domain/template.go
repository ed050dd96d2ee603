package domain

import "time"

const (
	ScopeGlobal   = "global"
	ScopeProject  = "project"
	ScopeProvider = "provider"

	PromptTranslateSingle = "translate_single"
	PromptTranslatePlural = "translate_plural"

	RoleSystem = "system"
	RoleUser   = "user"
)

// Template is a stored prompt template body, written in the template
// language and rendered without autoescaping.
type Template struct {
	ID        int64     `json:"id"`
	Scope     string    `json:"scope"`
	RefID     *int64    `json:"ref_id"` // project_id or provider_id
	Type      string    `json:"type"`
	Role      string    `json:"role"`
	Body      string    `json:"body"`
	IsDefault bool      `json:"is_default"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CacheEntry remembers provider output for a source text, comment and
// language pair.
type CacheEntry struct {
	ID         int64     `json:"id"`
	SourceText string    `json:"source_text"`
	Comment    string    `json:"comment"`
	SrcLang    string    `json:"src_lang"`
	TgtLang    string    `json:"tgt_lang"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Forms      []string  `json:"forms"`
	CreatedAt  time.Time `json:"created_at"`
}
