package translator

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestOpen_AssignsID(t *testing.T) {
	a := Open(SessionOptions{})
	b := Open(SessionOptions{})
	if a.ID == "" || b.ID == "" {
		t.Fatal("expected generated IDs")
	}
	if a.ID == b.ID {
		t.Error("expected distinct IDs")
	}

	c := Open(SessionOptions{ID: "run-1"})
	if c.ID != "run-1" {
		t.Errorf("expected ID 'run-1', got %q", c.ID)
	}
}

func TestSession_HistoryIsBounded(t *testing.T) {
	s := Open(SessionOptions{HistoryTurns: 2})
	for _, src := range []string{"one", "two", "three"} {
		if err := s.Record(src, strings.ToUpper(src)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	h := s.History()
	if len(h) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(h))
	}
	if h[0].Source != "two" || h[1].Translation != "THREE" {
		t.Errorf("unexpected history %+v", h)
	}
	if s.Turns() != 3 {
		t.Errorf("expected 3 turns recorded, got %d", s.Turns())
	}

	h[0].Source = "mutated"
	if s.History()[0].Source != "two" {
		t.Error("History must return a copy")
	}
}

func TestSession_NoHistory(t *testing.T) {
	s := Open(SessionOptions{})
	s.Record("a", "b")
	if h := s.History(); h != nil {
		t.Errorf("expected nil history, got %+v", h)
	}
	if !s.Stateless() {
		t.Error("expected stateless session")
	}
}

func TestSession_PreviousContext(t *testing.T) {
	s := Open(SessionOptions{ContextWords: 3})
	if got := s.PreviousContext(); got != "" {
		t.Errorf("expected empty context before first turn, got %q", got)
	}

	s.Record("alpha beta gamma delta epsilon", "x")
	if got := s.PreviousContext(); got != "gamma delta epsilon" {
		t.Errorf("expected last 3 words, got %q", got)
	}
	if s.Stateless() {
		t.Error("sliding context makes the session stateful")
	}
}

func TestSession_Request(t *testing.T) {
	s := Open(SessionOptions{
		SourceLang:   "en",
		TargetLang:   "zh",
		Glossary:     map[string]string{"theorem": "定理"},
		Instructions: "Keep it formal.",
		HistoryTurns: 1,
	})
	s.Record("Hi.", "你好。")

	req := s.Request("Bye.")
	if req.Text != "Bye." || req.SourceLang != "en" || req.TargetLang != "zh" {
		t.Errorf("unexpected request %+v", req)
	}
	if req.GlossaryTerms["theorem"] != "定理" {
		t.Error("expected glossary in request")
	}
	if len(req.History) != 1 || req.History[0].Translation != "你好。" {
		t.Errorf("expected history in request, got %+v", req.History)
	}
}

func TestSession_Close(t *testing.T) {
	s := Open(SessionOptions{HistoryTurns: 1})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !s.Closed() {
		t.Error("expected closed session")
	}
	if err := s.Record("a", "b"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSession_ConcurrentRecord(t *testing.T) {
	s := Open(SessionOptions{HistoryTurns: 5})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record("src", "dst")
			_ = s.Request("x")
		}()
	}
	wg.Wait()

	if s.Turns() != 50 {
		t.Errorf("expected 50 turns, got %d", s.Turns())
	}
	if len(s.History()) != 5 {
		t.Errorf("expected 5 retained turns, got %d", len(s.History()))
	}
}

func TestSession_Usage(t *testing.T) {
	s := Open(SessionOptions{})
	s.AddUsage(map[string]string{"prompt_tokens": "10", "completion_tokens": "4"})
	s.AddUsage(map[string]string{"model": "x"})
	s.AddUsage(nil)
	s.AddUsage(map[string]string{"prompt_tokens": "5", "completion_tokens": "1"})

	u := s.Usage()
	if u.PromptTokens != 15 || u.CompletionTokens != 5 {
		t.Errorf("unexpected usage %+v", u)
	}
}
