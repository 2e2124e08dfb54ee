// Package chunker groups a parsed LaTeX body into translatable chunks that
// are cut only at safe boundaries, and puts translated chunks back into the
// document template. It also extracts a sliding-window context snippet (last
// N words) for use with LLM translators to maintain continuity across chunk
// boundaries.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/valpere/texsplit/internal/latex"
)

const (
	// DefaultMaxChars is the chunk length limit used when none is given.
	DefaultMaxChars = 3000

	// DefaultContextWords is the default number of words extracted by
	// ExtractContext for use as a sliding-window context.
	DefaultContextWords = 25
)

// AssemblyError reports a translated chunk list whose length differs from
// the number of source chunks.
type AssemblyError struct {
	Want int
	Got  int
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly: expected %d translated chunks, got %d", e.Want, e.Got)
}

// Assemble packs tokens into chunks of roughly maxChars code points.
//
// Tokens are appended to the current chunk in order. Once the chunk holds at
// least maxChars code points it is closed at the next safe position, so a
// chunk overshoots maxChars by at most the construct that crossed the limit.
// Every chunk but the last reaches maxChars, and none could have been closed
// earlier. Concatenating the result reproduces the tokens' raw text exactly.
// If maxChars ≤ 0, DefaultMaxChars is used.
func Assemble(tokens []latex.Token, b latex.Boundaries, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	for i, tok := range tokens {
		cur.WriteString(tok.Raw)
		curLen += utf8.RuneCountInString(tok.Raw)
		if curLen >= maxChars && b.IsSafe(i+1) {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// Document is the splitter's artifact: the template and the ordered chunks
// of the body.
type Document struct {
	Template latex.Template `json:"template"`
	Chunks   []string       `json:"chunks"`
}

// Split extracts the body of text, parses it and packs it into chunks of at
// most maxChars code points. Parse errors carry offsets into text, not into
// the body.
func Split(text string, maxChars int) (*Document, error) {
	tmpl, body, err := latex.Extract(text)
	if err != nil {
		return nil, err
	}

	tokens, err := latex.Parse(body)
	if err != nil {
		var perr *latex.ParseError
		if errors.As(err, &perr) {
			base := strings.Index(tmpl.Text, latex.Placeholder) + len(tmpl.Begin)
			return nil, perr.Within(text, base)
		}
		return nil, err
	}

	return &Document{
		Template: tmpl,
		Chunks:   Assemble(tokens, latex.Classify(tokens), maxChars),
	}, nil
}

// Body returns the untranslated body.
func (d *Document) Body() string {
	return strings.Join(d.Chunks, "")
}

// Reassemble concatenates translated, which must hold one entry per chunk in
// chunk order, and fills the template with it.
func (d *Document) Reassemble(translated []string) (string, error) {
	if len(translated) != len(d.Chunks) {
		return "", &AssemblyError{Want: len(d.Chunks), Got: len(translated)}
	}
	return d.Template.Fill(strings.Join(translated, "")), nil
}

// ExtractContext returns the last wordCount words of text, joined by a single
// space. It is intended for use as a sliding-window context snippet passed to
// LLM translators so they can maintain narrative continuity across chunks.
// If text has fewer words than wordCount, the entire text is returned.
// If wordCount ≤ 0, DefaultContextWords is used.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-wordCount:], " ")
}
