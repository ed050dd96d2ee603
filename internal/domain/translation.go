package domain

import "time"

const (
	StatusTranslated = "translated"
	StatusUnfinished = "unfinished"
	StatusObsolete   = "obsolete"
	// StatusMachine marks forms filled by an LLM provider.
	StatusMachine = "machine"
)

// Translation holds the forms of one unit in one locale. Singular units
// have one form; plural units one per numerus form of the locale.
type Translation struct {
	ID         int64     `json:"id"`
	UnitID     int64     `json:"unit_id"`
	Locale     string    `json:"locale"`
	Forms      []string  `json:"forms"`
	Status     string    `json:"status"`
	ProviderID *int64    `json:"provider_id"`
	Confidence *float64  `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Text returns the first form.
func (t *Translation) Text() string {
	if t == nil || len(t.Forms) == 0 {
		return ""
	}
	return t.Forms[0]
}

// Complete reports whether every form is filled.
func (t *Translation) Complete() bool {
	if t == nil || len(t.Forms) == 0 {
		return false
	}
	for _, f := range t.Forms {
		if f == "" {
			return false
		}
	}
	return true
}
