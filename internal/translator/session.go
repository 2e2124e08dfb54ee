package translator

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionClosed is returned when a turn is recorded on a closed session.
var ErrSessionClosed = errors.New("translation session is closed")

// SessionOptions configures a translation session.
type SessionOptions struct {
	// ID identifies the run; a random UUID is used when empty.
	ID           string
	SourceLang   string
	TargetLang   string
	Glossary     map[string]string
	Instructions string
	// HistoryTurns bounds how many earlier turns are replayed to chat
	// services. Zero disables history.
	HistoryTurns int
	// ContextWords is the number of trailing words of the previous chunk
	// passed as PreviousContext. Zero disables the sliding window.
	ContextWords int
}

// Session carries the cross-chunk state of one document translation. It is
// opened once per run, handed to every translation call, and closed after
// the last chunk.
type Session struct {
	ID           string
	SourceLang   string
	TargetLang   string
	Glossary     map[string]string
	Instructions string

	historyTurns int
	contextWords int

	mu       sync.Mutex
	history  []Turn
	previous string
	turns    int
	closed   bool
	usage    Usage
}

// Usage totals the tokens reported by LLM services over a session.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Open starts a session.
func Open(opts SessionOptions) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:           id,
		SourceLang:   opts.SourceLang,
		TargetLang:   opts.TargetLang,
		Glossary:     opts.Glossary,
		Instructions: opts.Instructions,
		historyTurns: opts.HistoryTurns,
		contextWords: opts.ContextWords,
	}
}

// Record appends a completed turn. Only the most recent HistoryTurns turns
// are retained.
func (s *Session) Record(source, translation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.turns++
	s.previous = source
	if s.historyTurns <= 0 {
		return nil
	}
	s.history = append(s.history, Turn{Source: source, Translation: translation})
	if extra := len(s.history) - s.historyTurns; extra > 0 {
		s.history = append([]Turn(nil), s.history[extra:]...)
	}
	return nil
}

// History returns a copy of the retained turns, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return nil
	}
	return append([]Turn(nil), s.history...)
}

// PreviousContext returns the last ContextWords words of the previously
// recorded source chunk, or "" when the window is disabled.
func (s *Session) PreviousContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contextWords <= 0 || s.previous == "" {
		return ""
	}
	words := strings.Fields(s.previous)
	if len(words) > s.contextWords {
		words = words[len(words)-s.contextWords:]
	}
	return strings.Join(words, " ")
}

// Stateless reports whether calls made under this session are independent of
// each other, so chunks may be translated concurrently.
func (s *Session) Stateless() bool {
	return s.historyTurns <= 0 && s.contextWords <= 0
}

// Turns returns the number of turns recorded so far.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// Request builds the service request for text under this session.
func (s *Session) Request(text string) TranslateRequest {
	return TranslateRequest{
		Text:            text,
		SourceLang:      s.SourceLang,
		TargetLang:      s.TargetLang,
		PreviousContext: s.PreviousContext(),
		GlossaryTerms:   s.Glossary,
		Instructions:    s.Instructions,
		History:         s.History(),
	}
}

// AddUsage adds the token counts found in a service result's metadata.
// Results without counts are ignored.
func (s *Session) AddUsage(metadata map[string]string) {
	prompt, _ := strconv.Atoi(metadata["prompt_tokens"])
	completion, _ := strconv.Atoi(metadata["completion_tokens"])
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.PromptTokens += prompt
	s.usage.CompletionTokens += completion
}

// Usage returns the token totals so far.
func (s *Session) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Close ends the session. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
