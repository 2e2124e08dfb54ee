package translator

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestGoogleService_APIError(t *testing.T) {
	svc := NewGoogleService()

	err := svc.apiError(&googleapi.Error{Code: 403, Message: "API key not valid"})
	if !IsPermanent(err) {
		t.Errorf("expected 403 to be permanent, got %v", err)
	}

	err = svc.apiError(&googleapi.Error{Code: 503, Message: "backend unavailable"})
	if IsPermanent(err) {
		t.Errorf("expected 503 to be retryable, got %v", err)
	}

	err = svc.apiError(errors.New("connection reset"))
	if IsPermanent(err) {
		t.Errorf("expected transport error to be retryable, got %v", err)
	}
}

func TestGoogleService_Translate_InvalidLanguage(t *testing.T) {
	svc := NewGoogleService()

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "not a language",
	})
	if err == nil {
		t.Fatal("expected error for invalid target language")
	}
	if result.Error == "" {
		t.Error("expected error recorded in result")
	}
	if svc.client != nil {
		t.Error("expected no client to be created")
	}
}
