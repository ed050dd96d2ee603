package template

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTemplateNotFound is wrapped by every error reporting a template that no
// loader could provide.
var ErrTemplateNotFound = errors.New("template: not found")

// ErrorKind classifies a TemplateError.
type ErrorKind int

const (
	TagSyntaxError ErrorKind = iota + 1
	UnknownTag
	UnknownFilter
	TemplateNotFound
	RenderError
)

func (k ErrorKind) String() string {
	switch k {
	case TagSyntaxError:
		return "syntax error"
	case UnknownTag:
		return "unknown tag"
	case UnknownFilter:
		return "unknown filter"
	case TemplateNotFound:
		return "not found"
	case RenderError:
		return "render error"
	default:
		return "error"
	}
}

// TemplateError is returned by compilation and rendering. Line is 1-based
// and zero when unknown.
type TemplateError struct {
	Kind     ErrorKind
	Template string
	Line     int
	Msg      string
	Err      error
}

func (e *TemplateError) Error() string {
	where := e.Template
	if where == "" {
		where = "<string>"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("template: %s: %s: %s", where, e.Kind, msg)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// IsKind reports whether err is a *TemplateError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *TemplateError
	return errors.As(err, &te) && te.Kind == kind
}

func notFound(name string) *TemplateError {
	return &TemplateError{
		Kind:     TemplateNotFound,
		Template: name,
		Msg:      fmt.Sprintf("no loader provides %q", name),
		Err:      ErrTemplateNotFound,
	}
}
