package ports

import "context"

// PromptData is the context prompt templates render against.
type PromptData struct {
	SrcLang      string
	TgtLang      string
	Key          string
	Text         string
	Comment      string
	OldSource    string
	Context      string
	FilePath     string
	Project      string
	Numerus      bool
	Categories   []string // CLDR plural categories of TgtLang, in form order
	Placeholders []string
}

type PromptRenderer interface {
	Render(ctx context.Context, scope string, refID *int64, typ, role string, data PromptData) (string, error)
}
