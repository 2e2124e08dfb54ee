package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" {
			t.Errorf("expected model 'test-model', got %q", req.Model)
		}
		if len(req.Messages) != 4 {
			t.Errorf("expected 4 messages, got %d", len(req.Messages))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": `{"latex": "你好 $x$"}`},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
		})
	}))
	defer server.Close()

	svc := NewOpenAIService("openai", "test-key", server.URL, "test-model")

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello $x$",
		SourceLang: "en",
		TargetLang: "zh",
		History:    []Turn{{Source: "Hi.", Translation: "嗨。"}},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "你好 $x$" {
		t.Errorf("expected envelope unwrapped, got %q", result.TranslatedText)
	}
	if result.Metadata["completion_tokens"] != "4" {
		t.Errorf("expected usage metadata, got %v", result.Metadata)
	}
	if result.ServiceName != "openai" {
		t.Errorf("expected service name 'openai', got %q", result.ServiceName)
	}
}

func TestOpenAIService_Translate_NoAPIKey(t *testing.T) {
	svc := NewOpenAIService("", "", "", "")

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "fr"})
	if err == nil {
		t.Error("expected error when no API key")
	}
	if result == nil || result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestOpenAIService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewOpenAIService("openai", "test-key", server.URL, "m")
	if _, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "fr"}); err == nil {
		t.Error("expected error for non-OK status")
	}
}

func TestNewGeminiService(t *testing.T) {
	svc := NewGeminiService("key", "")
	if svc.Name() != "gemini" {
		t.Errorf("expected 'gemini', got %q", svc.Name())
	}
	if svc.model != DefaultGeminiModel || svc.baseURL != GeminiBaseURL {
		t.Errorf("unexpected gemini config %+v", svc)
	}
	if err := svc.IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
