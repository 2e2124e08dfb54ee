package arbiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/texsplit/internal/translator"
)

var candidates = []translator.ServiceResult{
	{ServiceName: "google", TranslatedText: `Sei $f$ stetig auf \([0,1]\).`},
	{ServiceName: "ollama", TranslatedText: `Es sei $f$ stetig auf \([0,1]\).`},
}

// judge serves a fixed model answer on /api/generate and captures the request.
func judge(t *testing.T, answer string, seen *map[string]any) *OllamaArbiter {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		json.NewEncoder(w).Encode(map[string]string{"response": answer})
	}))
	t.Cleanup(srv.Close)
	return NewOllamaArbiter("aya:35b", srv.URL)
}

func evaluate(a *OllamaArbiter, results []translator.ServiceResult) (*EvaluationResult, error) {
	return a.Evaluate(context.Background(), `Let $f$ be continuous on \([0,1]\).`, "en", "de", results)
}

func TestEvaluate_Selects(t *testing.T) {
	var req map[string]any
	a := judge(t, `{"selected_service": "ollama", "final_text": "ignored", "reasoning": "more idiomatic"}`, &req)

	res, err := evaluate(a, candidates)
	require.NoError(t, err)
	assert.Equal(t, "aya:35b", req["model"])
	assert.Equal(t, "json", req["format"])
	assert.Equal(t, "ollama", res.SelectedService)
	assert.False(t, res.IsComposite)
	assert.Equal(t, candidates[1].TranslatedText, res.CompositeText, "selected candidate keeps its own text")
	assert.Equal(t, "more idiomatic", res.Reasoning)
}

func TestEvaluate_Composite(t *testing.T) {
	a := judge(t, "```json\n{\"selected_service\": \"composite\", \"final_text\": \"Sei $f$ stetig.\", \"reasoning\": \"\"}\n```", nil)

	res, err := evaluate(a, candidates)
	require.NoError(t, err)
	assert.True(t, res.IsComposite)
	assert.Equal(t, "Sei $f$ stetig.", res.CompositeText)
}

func TestEvaluate_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown service": `{"selected_service": "deepl", "final_text": "x"}`,
		"empty composite": `{"selected_service": "composite", "final_text": "  "}`,
		"not json":        `I prefer the second one.`,
	}
	for name, answer := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := evaluate(judge(t, answer, nil), candidates)
			assert.Error(t, err)
		})
	}
}

func TestEvaluate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := evaluate(NewOllamaArbiter("aya:35b", srv.URL), candidates)
	assert.ErrorContains(t, err, "arbiter")
}

func TestEvaluate_WithoutCalling(t *testing.T) {
	a := NewOllamaArbiter("aya:35b", "http://127.0.0.1:1")

	_, err := evaluate(a, nil)
	assert.Error(t, err)

	res, err := evaluate(a, candidates[:1])
	require.NoError(t, err)
	assert.Equal(t, "google", res.SelectedService)
	assert.Equal(t, candidates[0].TranslatedText, res.CompositeText)
}

func TestBuildArbiterPrompt(t *testing.T) {
	prompt := buildArbiterPrompt(`Let $f$ be continuous.`, "en", "de", candidates)

	for _, want := range []string{"German", "English", "google|ollama|composite", "CANDIDATE 2 [ollama]", `Let $f$ be continuous.`} {
		assert.Contains(t, prompt, want)
	}
}
