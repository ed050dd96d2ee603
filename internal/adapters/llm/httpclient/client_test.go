package httpclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/adapters/llm/httpclient"
	"github.com/steveire/grantlee/internal/ports"
)

func ollamaServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "llama3", body["model"])
			assert.Equal(t, false, body["stream"])
			_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": content}})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{{"name": "llama3"}, {"name": "mistral"}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaTranslate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		seg     ports.Segment
		want    []string
		wantErr bool
	}{
		{"json", `{"translation":"Geburtstag"}`, ports.Segment{Text: "Birthday"}, []string{"Geburtstag"}, false},
		{"fenced", "```json\n{\"translation\":\"Geburtstag\"}\n```", ports.Segment{Text: "Birthday"}, []string{"Geburtstag"}, false},
		{"prose", "Translation: Geburtstag", ports.Segment{Text: "Birthday"}, []string{"Geburtstag"}, false},
		{"plural", `Here you go {"forms":["%n Person","%n Personen"]}`, ports.Segment{Text: "%n People", Numerus: true, Forms: 2},
			[]string{"%n Person", "%n Personen"}, false},
		{"plural wrong count", `{"forms":["%n Person"]}`, ports.Segment{Text: "%n People", Numerus: true, Forms: 2}, nil, true},
		{"plural prose", `%n Personen`, ports.Segment{Text: "%n People", Numerus: true, Forms: 2}, nil, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := ollamaServer(t, tt.content)
			c := httpclient.New("ollama", "", srv.URL, "llama3")
			res, err := c.Translate(context.Background(), tt.seg, ports.TranslateParams{SystemPrompt: "s", UserPrompt: "u"})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Forms)
		})
	}
}

func TestOllamaListModels(t *testing.T) {
	t.Parallel()
	srv := ollamaServer(t, "")
	models, err := httpclient.New("ollama", "", srv.URL, "").ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3", models[0].Name)
}

func TestOpenRouterFallsBackToJSONObject(t *testing.T) {
	t.Parallel()
	var formats []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body struct {
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		formats = append(formats, body.ResponseFormat.Type)
		if body.ResponseFormat.Type == "json_schema" {
			http.Error(w, "schema unsupported", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{
			{"message": map[string]string{"content": `{"translation":"Anniversaire"}`}},
		}})
	}))
	defer srv.Close()

	c := httpclient.New("openrouter", "key", srv.URL, "gpt")
	res, err := c.Translate(context.Background(), ports.Segment{Text: "Birthday"}, ports.TranslateParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Anniversaire"}, res.Forms)
	assert.Equal(t, []string{"json_schema", "json_object"}, formats)
}

func TestDecodesPlainTextJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(`{"message":{"content":"{\"translation\":\"Geburtstag\"}"}}`))
	}))
	t.Cleanup(srv.Close)

	res, err := httpclient.New("ollama", "", srv.URL, "llama3").
		Translate(context.Background(), ports.Segment{Text: "Birthday"}, ports.TranslateParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Geburtstag"}, res.Forms)
}

func TestUnsupportedProvider(t *testing.T) {
	t.Parallel()
	c := httpclient.New("bogus", "", "", "")
	_, err := c.Translate(context.Background(), ports.Segment{}, ports.TranslateParams{})
	require.Error(t, err)
	require.Error(t, c.Test(context.Background()))
}
