package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub serves handler and closes it with the test.
func stub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

var enToDE = TranslateRequest{Text: `We prove \emph{Lemma}.`, SourceLang: "en", TargetLang: "de"}

func TestServiceIdentity(t *testing.T) {
	tests := []struct {
		svc   TranslationService
		name  string
		latex bool
	}{
		{NewOllamaTranslator("", nil), "ollama", true},
		{NewOpenRouterService("k", "", nil), "openrouter", true},
		{NewOpenAIService("", "k", "", ""), "openai", true},
		{NewMyMemoryService(""), "mymemory", false},
		{NewSystranService("k"), "systran", false},
		{NewGoogleService(), "google", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.svc.Name())
			assert.Equal(t, tt.latex, IsLaTeXAware(tt.svc))
		})
	}
}

func TestStaticLanguageLists(t *testing.T) {
	for _, svc := range []TranslationService{NewOllamaTranslator("", nil), NewMyMemoryService(""), NewSystranService("k")} {
		langs, err := svc.SupportedLanguages(context.Background())
		require.NoError(t, err, svc.Name())
		assert.NotEmpty(t, langs, svc.Name())
	}
}

func TestKeylessAvailability(t *testing.T) {
	assert.NoError(t, NewMyMemoryService("me@example.org").IsAvailable(context.Background()))
	assert.NoError(t, NewSystranService("k").IsAvailable(context.Background()))
	assert.Error(t, NewSystranService("").IsAvailable(context.Background()))
}

func TestOllamaTranslator_Translate(t *testing.T) {
	srv := stub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		if assert.Len(t, req.Messages, 4) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, chatMessage{Role: "assistant", Content: "Erster Satz."}, req.Messages[2])
			assert.Equal(t, enToDE.Text, req.Messages[3].Content)
		}
		reply(w, map[string]any{"message": map[string]string{"role": "assistant", "content": "<think>ok</think>Wir beweisen \\emph{Lemma}."}})
	})

	svc := &OllamaTranslator{baseURL: srv.URL, models: []string{"qwen3:14b"}, client: srv.Client()}
	req := enToDE
	req.History = []Turn{{Source: "First sentence.", Translation: "Erster Satz."}}

	res, err := svc.Translate(context.Background(), ServiceConfig{}, req)
	require.NoError(t, err)
	assert.Equal(t, `Wir beweisen \emph{Lemma}.`, res.TranslatedText)
	assert.Equal(t, "qwen3:14b", res.Metadata["model"])
}

func TestOllamaTranslator_Translate_ServerError(t *testing.T) {
	srv := stub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})
	svc := &OllamaTranslator{baseURL: srv.URL, models: []string{"qwen3:14b"}, client: srv.Client()}

	res, err := svc.Translate(context.Background(), ServiceConfig{}, enToDE)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Error)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
}

func TestOllamaTranslator_IsAvailable(t *testing.T) {
	srv := stub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
	})
	up := &OllamaTranslator{baseURL: srv.URL, client: srv.Client()}
	assert.NoError(t, up.IsAvailable(context.Background()))

	down := &OllamaTranslator{baseURL: "http://127.0.0.1:1", client: &http.Client{Timeout: 100 * time.Millisecond}}
	assert.Error(t, down.IsAvailable(context.Background()))
}

func TestOllamaTranslator_Models(t *testing.T) {
	svc := NewOllamaTranslator("", []string{"qwen3:14b"})
	svc.SetModels(nil)
	assert.Equal(t, []string{"qwen3:14b"}, svc.GetModels(), "empty list keeps current models")

	svc.SetModels([]string{"aya:35b", "gemma3:12b-it-qat"})
	assert.Len(t, svc.GetModels(), 2)
}

func TestMyMemoryService_Translate(t *testing.T) {
	srv := stub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en|de", r.URL.Query().Get("langpair"))
		assert.Equal(t, "Proof of ⟦0⟧.", r.URL.Query().Get("q"))
		reply(w, map[string]any{
			"responseData":   map[string]any{"translatedText": "Beweis von ⟦0⟧.", "match": 0.9},
			"responseStatus": 200,
		})
	})
	svc := &MyMemoryService{baseURL: srv.URL, client: srv.Client()}

	res, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text: "Proof of ⟦0⟧.", SourceLang: "en", TargetLang: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, "Beweis von ⟦0⟧.", res.TranslatedText)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestOpenRouterService_Translate(t *testing.T) {
	srv := stub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req chatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test/model", req.Model)
		reply(w, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "```latex\nWir beweisen \\emph{Lemma}.\n```"}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
		})
	})
	svc := NewOpenRouterService("key", srv.URL, []string{"test/model"})
	svc.client = srv.Client()

	res, err := svc.Translate(context.Background(), ServiceConfig{}, enToDE)
	require.NoError(t, err)
	assert.Equal(t, `Wir beweisen \emph{Lemma}.`, res.TranslatedText)
	assert.Equal(t, "10", res.Metadata["prompt_tokens"])
	assert.Equal(t, "5", res.Metadata["completion_tokens"])
}

func TestSystranService_Translate(t *testing.T) {
	t.Run("no key", func(t *testing.T) {
		res, err := NewSystranService("").Translate(context.Background(), ServiceConfig{}, enToDE)
		require.Error(t, err)
		require.NotNil(t, res)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("forbidden is permanent", func(t *testing.T) {
		srv := stub(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
		svc := &SystranService{apiKey: "k", baseURL: srv.URL, client: srv.Client()}

		_, err := svc.Translate(context.Background(), ServiceConfig{}, enToDE)
		require.Error(t, err)
		assert.True(t, IsPermanent(err))
	})
}
