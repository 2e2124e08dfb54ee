package refiner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Refiner = (*OllamaRefiner)(nil)

func editor(t *testing.T, handler http.HandlerFunc) *OllamaRefiner {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllamaRefiner("aya:35b", srv.URL)
}

func answer(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": text})
	}
}

func TestRefine(t *testing.T) {
	r := editor(t, func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Format string `json:"format"`
		}
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "aya:35b", body.Model)
		assert.Empty(t, body.Format)
		assert.Contains(t, body.Prompt, `Привіт $x$`)
		answer("```latex\nВітаю $x$\n```")(w, req)
	})

	got, err := r.Refine(context.Background(), "en", "uk", "\nHello $x$\n\n", "\nПривіт $x$\n\n")
	require.NoError(t, err)
	assert.Equal(t, "\nВітаю $x$\n\n", got)
}

func TestRefine_EmptyAnswerKeepsDraft(t *testing.T) {
	got, err := editor(t, answer("<think>nothing to do</think>")).Refine(context.Background(), "en", "uk", "Hello", "Привіт")
	require.NoError(t, err)
	assert.Equal(t, "Привіт", got)
}

func TestRefine_Errors(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"unavailable": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
		"not json":    func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("not json")) },
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := editor(t, h).Refine(context.Background(), "en", "uk", "Hello", "Draft")
			assert.ErrorContains(t, err, "refiner")
		})
	}
}

func TestBuildRefinementPrompt(t *testing.T) {
	prompt := buildRefinementPrompt("en", "uk", `\section{Hello}`, `\section{Привіт}`)
	for _, want := range []string{"English", "Ukrainian", `\section{Hello}`, `\section{Привіт}`} {
		assert.Contains(t, prompt, want)
	}
}
