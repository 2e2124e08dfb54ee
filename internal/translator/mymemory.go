package translator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultMyMemoryURL = "https://api.mymemory.translated.net"

// myMemoryMaxQuery is the longest query MyMemory accepts, in bytes.
const myMemoryMaxQuery = 500

// MyMemoryService calls the free MyMemory API. An email raises the daily
// quota.
type MyMemoryService struct {
	email   string
	baseURL string
	client  *http.Client
}

func NewMyMemoryService(email string) *MyMemoryService {
	return &MyMemoryService{
		email:   email,
		baseURL: defaultMyMemoryURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *MyMemoryService) Name() string {
	return "mymemory"
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string  `json:"translatedText"`
		Match          float64 `json:"match"`
	} `json:"responseData"`
	ResponseStatus  int    `json:"responseStatus"`
	ResponseDetails string `json:"responseDetails"`
}

func (s *MyMemoryService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if len(req.Text) > myMemoryMaxQuery {
		return fail(result, fmt.Errorf("%w: %d bytes, MyMemory takes %d", ErrInputTooLong, len(req.Text), myMemoryMaxQuery))
	}

	source := req.SourceLang
	if source == "" || source == "auto" {
		source = "en"
	}

	q := url.Values{}
	q.Set("q", req.Text)
	q.Set("langpair", source+"|"+req.TargetLang)
	if s.email != "" {
		q.Set("de", s.email)
	}

	var resp myMemoryResponse
	if err := doJSON(ctx, s.client, s.Name(), http.MethodGet, s.baseURL+"/get?"+q.Encode(), nil, nil, &resp); err != nil {
		return fail(result, err)
	}
	// MyMemory reports quota and input errors in the body of a 200 response.
	if resp.ResponseStatus != http.StatusOK {
		return fail(result, &StatusError{Service: s.Name(), Code: resp.ResponseStatus, Body: resp.ResponseDetails})
	}

	result.TranslatedText = resp.ResponseData.TranslatedText
	result.Confidence = min(max(resp.ResponseData.Match, 0), 1)
	return result, nil
}

func (s *MyMemoryService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *MyMemoryService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{
		"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh",
		"ar", "nl", "pl", "tr", "sv", "da", "no", "fi", "el", "he",
		"th", "vi", "id", "ms", "cs", "hu", "ro", "uk", "bg", "ca",
	}, nil
}
