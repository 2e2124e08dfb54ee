package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// StatusError is a non-200 answer from a translation API.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: API returned status %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: API returned status %d: %s", e.Service, e.Code, e.Body)
}

// Retryable reports whether the same request may succeed later.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout || e.Code >= 500
}

// ErrInputTooLong is returned by services that cannot take a chunk of the
// given size. Retrying does not help; a smaller chunk size does.
var ErrInputTooLong = errors.New("input too long for service")

// IsPermanent reports whether err will recur on retry with the same input.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrInputTooLong) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && !se.Retryable()
}

// doJSON sends in (when non-nil) as a JSON body and decodes a 200 response
// into out (when non-nil).
func doJSON(ctx context.Context, client *http.Client, service, method, url string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Service: service, Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// fail records err on result and returns both, the shape every service
// returns on error.
func fail(result *ServiceResult, err error) (*ServiceResult, error) {
	result.Error = err.Error()
	return result, err
}

func usageMetadata(model string, promptTokens, completionTokens int) map[string]string {
	return map[string]string{
		"model":             model,
		"prompt_tokens":     strconv.Itoa(promptTokens),
		"completion_tokens": strconv.Itoa(completionTokens),
	}
}

// pickModel spreads requests over a rotation of models.
func pickModel(models []string, fallback string) string {
	if len(models) == 0 {
		return fallback
	}
	return models[rand.IntN(len(models))]
}
