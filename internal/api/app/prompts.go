package app

import (
	"context"

	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
	"github.com/steveire/grantlee/internal/template"
)

// PromptAPI manages stored prompt templates.
type PromptAPI struct {
	repo     ports.TemplateRepository
	renderer ports.PromptRenderer
}

func NewPromptAPI(repo ports.TemplateRepository, renderer ports.PromptRenderer) *PromptAPI {
	return &PromptAPI{repo: repo, renderer: renderer}
}

func (a *PromptAPI) List(ctx context.Context) ([]*domain.Template, error) {
	return a.repo.List(ctx)
}

type SetPromptRequest struct {
	Scope string `json:"scope"`
	RefID *int64 `json:"ref_id"`
	Type  string `json:"type"`
	Role  string `json:"role"`
	Body  string `json:"body"`
}

// Set stores a prompt body after checking that it compiles.
func (a *PromptAPI) Set(ctx context.Context, req SetPromptRequest) (*domain.Template, error) {
	switch req.Scope {
	case domain.ScopeGlobal:
		req.RefID = nil
	case domain.ScopeProject, domain.ScopeProvider:
		if req.RefID == nil {
			return nil, errors.Errorf("scope %s needs a reference id", req.Scope)
		}
	default:
		return nil, errors.Errorf("unknown scope: %s", req.Scope)
	}
	switch req.Type {
	case domain.PromptTranslateSingle, domain.PromptTranslatePlural:
	default:
		return nil, errors.Errorf("unknown prompt type: %s", req.Type)
	}
	if req.Role != domain.RoleSystem && req.Role != domain.RoleUser {
		return nil, errors.Errorf("unknown prompt role: %s", req.Role)
	}
	if _, err := template.New(template.WithAutoescape(false)).FromString(req.Type+"/"+req.Role, req.Body); err != nil {
		return nil, err
	}
	t := &domain.Template{Scope: req.Scope, RefID: req.RefID, Type: req.Type, Role: req.Role, Body: req.Body}
	if err := a.repo.Upsert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Preview renders the effective prompt for a sample message.
func (a *PromptAPI) Preview(ctx context.Context, providerID *int64, typ, role string, data ports.PromptData) (string, error) {
	return a.renderer.Render(ctx, domain.ScopeProvider, providerID, typ, role, data)
}
