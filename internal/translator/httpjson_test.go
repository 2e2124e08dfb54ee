package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDoJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Key") != "k" {
			t.Errorf("expected custom header, got %q", r.Header.Get("X-Key"))
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]string{"echo": in["text"]})
	}))
	defer server.Close()

	header := http.Header{}
	header.Set("X-Key", "k")
	var out struct {
		Echo string `json:"echo"`
	}
	err := doJSON(context.Background(), server.Client(), "test", http.MethodPost, server.URL, header,
		map[string]string{"text": "Hallo"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Echo != "Hallo" {
		t.Errorf("expected echo, got %q", out.Echo)
	}
}

func TestDoJSON_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(strings.Repeat("x", 2*maxErrorBody)))
	}))
	defer server.Close()

	err := doJSON(context.Background(), server.Client(), "test", http.MethodGet, server.URL, nil, nil, &struct{}{})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusTooManyRequests || !se.Retryable() {
		t.Errorf("expected retryable 429, got %+v", se)
	}
	if len(se.Body) != maxErrorBody {
		t.Errorf("expected body truncated to %d, got %d", maxErrorBody, len(se.Body))
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&StatusError{Code: 400}, true},
		{&StatusError{Code: 401}, true},
		{&StatusError{Code: 408}, false},
		{&StatusError{Code: 429}, false},
		{&StatusError{Code: 502}, false},
		{fmt.Errorf("ollama: %w", &StatusError{Code: 404}), true},
		{fmt.Errorf("%w: 600 bytes", ErrInputTooLong), true},
		{errors.New("connection reset"), false},
		{context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		if got := IsPermanent(tt.err); got != tt.want {
			t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestMyMemoryService_Translate_TooLong(t *testing.T) {
	svc := NewMyMemoryService("")

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       strings.Repeat("a", myMemoryMaxQuery+1),
		TargetLang: "de",
	})
	if !errors.Is(err, ErrInputTooLong) {
		t.Errorf("expected ErrInputTooLong, got %v", err)
	}
	if result == nil || result.Error == "" {
		t.Error("expected error recorded in result")
	}
}

func TestMyMemoryService_Translate_QuotaInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"responseStatus":  403,
			"responseDetails": "MYMEMORY WARNING: YOU USED ALL AVAILABLE FREE TRANSLATIONS FOR TODAY",
		})
	}))
	defer server.Close()

	svc := &MyMemoryService{baseURL: server.URL, client: server.Client()}
	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hi", TargetLang: "de"})
	if !IsPermanent(err) {
		t.Errorf("expected a permanent error, got %v", err)
	}
}

func TestSystranService_Translate_OutputError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "test-key" {
			t.Errorf("expected RapidAPI key header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"outputs": []map[string]string{{"error": "Language pair not supported"}},
		})
	}))
	defer server.Close()

	svc := &SystranService{apiKey: "test-key", baseURL: server.URL, client: server.Client()}
	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hi", TargetLang: "xx"})
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Errorf("expected output error, got %v", err)
	}
	if result.Error == "" {
		t.Error("expected error recorded in result")
	}
}
