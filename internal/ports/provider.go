package ports

import (
	"context"

	"github.com/pkg/errors"
)

// ErrMalformedAnswer marks provider answers that could not be read as a
// translation. Callers may retry them.
var ErrMalformedAnswer = errors.New("malformed model answer")

// Segment is one message sent for translation. A plural segment asks for
// Forms translations, one per CLDR category of the target language.
type Segment struct {
	Key          string
	Text         string
	Comment      string
	Context      string
	Numerus      bool
	Forms        int
	Placeholders []string
}

type TranslateParams struct {
	SourceLang   string
	TargetLang   string
	Model        string
	Temperature  float64
	SystemPrompt string
	UserPrompt   string
}

type TranslateResult struct {
	Forms []string
	Raw   string
}

type ModelInfo struct {
	Name          string
	Description   string
	ContextTokens int
}

// Provider represents a single LLM provider implementation.
type Provider interface {
	Translate(ctx context.Context, seg Segment, p TranslateParams) (TranslateResult, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Test(ctx context.Context) error
}
