// Package httpclient talks to OpenRouter and Ollama chat endpoints.
package httpclient

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
)

const (
	defaultOllamaURL     = "http://localhost:11434"
	defaultOpenRouterURL = "https://openrouter.ai"
)

// ErrFormCount is returned when a plural answer has the wrong number of
// forms. It wraps ports.ErrMalformedAnswer.
var ErrFormCount = errors.Wrap(ports.ErrMalformedAnswer, "wrong number of plural forms")

type Client struct {
	ProviderType string
	APIKey       string
	BaseURL      string
	Model        string
	http         *resty.Client
}

func New(providerType, apiKey, baseURL, model string) *Client {
	c := resty.New().SetTimeout(60 * time.Second)
	return &Client{ProviderType: strings.ToLower(providerType), APIKey: apiKey, BaseURL: baseURL, Model: model, http: c}
}

// request decodes bodies as JSON whatever Content-Type the provider sends.
func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).ForceContentType("application/json")
}

// SetTimeout changes the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) *Client {
	c.http.SetTimeout(d)
	return c
}

func (c *Client) Translate(ctx context.Context, seg ports.Segment, p ports.TranslateParams) (ports.TranslateResult, error) {
	var content string
	var err error
	switch c.ProviderType {
	case domain.ProviderOpenRouter:
		content, err = c.chatOpenRouter(ctx, seg, p)
	case domain.ProviderOllama:
		content, err = c.chatOllama(ctx, p)
	default:
		return ports.TranslateResult{}, errors.Errorf("unsupported provider: %s", c.ProviderType)
	}
	if err != nil {
		return ports.TranslateResult{}, err
	}
	forms, err := extractForms(content, seg)
	if err != nil {
		return ports.TranslateResult{}, err
	}
	return ports.TranslateResult{Forms: forms, Raw: content}, nil
}

func (c *Client) ListModels(ctx context.Context) ([]ports.ModelInfo, error) {
	switch c.ProviderType {
	case domain.ProviderOllama:
		url := strings.TrimRight(c.base(), "/") + "/api/tags"
		var resp struct {
			Models []struct {
				Name string `json:"name"`
			} `json:"models"`
		}
		r, err := c.request(ctx).SetResult(&resp).Get(url)
		if err != nil {
			return nil, errors.Wrap(err, "ollama list models")
		}
		if r.IsError() {
			return nil, errors.Errorf("ollama list models: %s; body: %s", r.Status(), r.String())
		}
		out := make([]ports.ModelInfo, 0, len(resp.Models))
		for _, m := range resp.Models {
			out = append(out, ports.ModelInfo{Name: m.Name})
		}
		return out, nil
	case domain.ProviderOpenRouter:
		var resp struct {
			Data []struct {
				ID            string `json:"id"`
				Name          string `json:"name"`
				ContextLength int    `json:"context_length"`
			} `json:"data"`
		}
		r, err := c.request(ctx).
			SetHeader("Authorization", "Bearer "+c.APIKey).
			SetResult(&resp).
			Get(openRouterURL(c.base(), "/models"))
		if err != nil {
			return nil, errors.Wrap(err, "openrouter list models")
		}
		if r.IsError() {
			return nil, errors.Errorf("openrouter list models: %s; body: %s", r.Status(), r.String())
		}
		out := make([]ports.ModelInfo, 0, len(resp.Data))
		for _, d := range resp.Data {
			label := d.Name
			if label == "" {
				label = d.ID
			}
			out = append(out, ports.ModelInfo{Name: d.ID, Description: label, ContextTokens: d.ContextLength})
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported provider: %s", c.ProviderType)
	}
}

func (c *Client) Test(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.ProviderType == domain.ProviderOllama {
		return defaultOllamaURL
	}
	return defaultOpenRouterURL
}

func (c *Client) model(p ports.TranslateParams) string {
	if p.Model != "" {
		return p.Model
	}
	return c.Model
}

func messages(p ports.TranslateParams) []map[string]string {
	return []map[string]string{
		{"role": "system", "content": p.SystemPrompt},
		{"role": "user", "content": p.UserPrompt},
	}
}

// responseSchema asks for {"translation": "..."} or, for plural segments,
// {"forms": [...]} with exactly seg.Forms entries.
func responseSchema(seg ports.Segment) map[string]any {
	props := map[string]any{"translation": map[string]any{"type": "string"}}
	required := []string{"translation"}
	if seg.Numerus {
		props = map[string]any{"forms": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": seg.Forms,
			"maxItems": seg.Forms,
		}}
		required = []string{"forms"}
	}
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   "translation",
			"strict": true,
			"schema": map[string]any{
				"type":                 "object",
				"properties":           props,
				"required":             required,
				"additionalProperties": false,
			},
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) openRouterRequest(ctx context.Context, body map[string]any, resp *chatResponse) *resty.Request {
	return c.request(ctx).
		SetHeader("Authorization", "Bearer "+c.APIKey).
		SetHeader("HTTP-Referer", "https://github.com/steveire/grantlee").
		SetHeader("X-Title", "grantlee").
		SetHeader("Content-Type", "application/json").
		SetBody(body).SetResult(resp)
}

func (c *Client) chatOpenRouter(ctx context.Context, seg ports.Segment, p ports.TranslateParams) (string, error) {
	url := openRouterURL(c.base(), "/chat/completions")
	body := map[string]any{
		"model":           c.model(p),
		"messages":        messages(p),
		"temperature":     p.Temperature,
		"response_format": responseSchema(seg),
	}
	var resp chatResponse
	rr, err := c.openRouterRequest(ctx, body, &resp).Post(url)
	if err != nil {
		return "", errors.Wrap(err, "openrouter translate")
	}
	// Models without JSON schema support answer 400; retry with json_object.
	if rr.StatusCode() == 400 {
		body["response_format"] = map[string]string{"type": "json_object"}
		if rr, err = c.openRouterRequest(ctx, body, &resp).Post(url); err != nil {
			return "", errors.Wrap(err, "openrouter translate")
		}
	}
	if rr.IsError() {
		return "", errors.Errorf("openrouter translate: %s; body: %s", rr.Status(), rr.String())
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrap(ports.ErrMalformedAnswer, "openrouter translate: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) chatOllama(ctx context.Context, p ports.TranslateParams) (string, error) {
	url := strings.TrimRight(c.base(), "/") + "/api/chat"
	body := map[string]any{
		"model":    c.model(p),
		"messages": messages(p),
		"stream":   false,
		"format":   "json",
		"options":  map[string]any{"temperature": p.Temperature},
	}
	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	rr, err := c.request(ctx).SetHeader("Content-Type", "application/json").SetBody(body).SetResult(&resp).Post(url)
	if err != nil {
		return "", errors.Wrap(err, "ollama translate")
	}
	if rr.IsError() {
		return "", errors.Errorf("ollama translate: %s; body: %s", rr.Status(), rr.String())
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

var translationRE = regexp.MustCompile(`(?s)"translation"\s*:\s*"(.*?)"`)

type answer struct {
	Translation string   `json:"translation"`
	Forms       []string `json:"forms"`
}

// extractForms pulls the translation out of a model answer that may wrap
// its JSON in code fences or prose, or ignore JSON mode altogether.
func extractForms(content string, seg ports.Segment) ([]string, error) {
	s := unfence(strings.TrimSpace(content))
	candidates := []string{s}
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			candidates = append(candidates, s[i:j+1])
		}
	}
	for _, cand := range candidates {
		var a answer
		if err := json.Unmarshal([]byte(cand), &a); err != nil {
			continue
		}
		if seg.Numerus {
			if len(a.Forms) == 0 && a.Translation != "" {
				a.Forms = []string{a.Translation}
			}
			if len(a.Forms) == 0 {
				continue
			}
			if len(a.Forms) != seg.Forms {
				return nil, errors.Wrapf(ErrFormCount, "got %d, want %d", len(a.Forms), seg.Forms)
			}
			return a.Forms, nil
		}
		if a.Translation != "" {
			return []string{a.Translation}, nil
		}
		if len(a.Forms) > 0 {
			return a.Forms[:1], nil
		}
	}
	if seg.Numerus {
		return nil, errors.Wrapf(ports.ErrMalformedAnswer, "failed to parse plural forms; content: %s", abbreviate(s, 2000))
	}
	if m := translationRE.FindStringSubmatch(s); len(m) == 2 {
		t := strings.ReplaceAll(m[1], `\n`, "\n")
		return []string{strings.ReplaceAll(t, `\"`, `"`)}, nil
	}
	// Plain text answer when JSON mode was not respected.
	if !strings.Contains(s, "{") {
		lower := strings.ToLower(s)
		for _, k := range []string{"translation:", "translated:", "result:", "output:"} {
			if pos := strings.Index(lower, k); pos >= 0 && pos < 80 {
				if cand := strings.TrimSpace(s[pos+len(k):]); cand != "" {
					return []string{cand}, nil
				}
			}
		}
		if s != "" {
			return []string{s}, nil
		}
	}
	return nil, errors.Wrapf(ports.ErrMalformedAnswer, "failed to parse translation JSON; content: %s", abbreviate(s, 2000))
}

func unfence(s string) string {
	idx := strings.Index(s, "```")
	if idx < 0 {
		return s
	}
	rest := strings.TrimPrefix(s[idx+3:], "json")
	if j := strings.Index(rest, "```"); j >= 0 {
		return strings.TrimSpace(rest[:j])
	}
	return s
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// openRouterURL builds a URL for OpenRouter whether base contains /api/v1 or not.
func openRouterURL(base, tail string) string {
	b := strings.TrimRight(base, "/")
	if idx := strings.Index(b, "/api/v1"); idx >= 0 {
		return b[:idx+len("/api/v1")] + tail
	}
	return b + "/api/v1" + tail
}
