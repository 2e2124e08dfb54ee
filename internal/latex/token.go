// Package latex tokenizes LaTeX source into structural units, separates the
// document body from its surrounding template, and marks the positions in a
// token stream where the body can be cut without tearing syntax.
//
// The tokenizer does not expand macros. Anything it cannot classify becomes an
// opaque Command token spanning to the matching brace or bracket, so the raw
// text of every token concatenated in order always reproduces the input.
package latex

import "fmt"

// Kind identifies the syntactic class of a Token.
type Kind int

const (
	PlainText Kind = iota
	Command
	EnvBegin
	EnvEnd
	InlineMath
	DisplayMath
	ParagraphBreak
	Comment
)

func (k Kind) String() string {
	switch k {
	case PlainText:
		return "plain_text"
	case Command:
		return "command"
	case EnvBegin:
		return "environment_begin"
	case EnvEnd:
		return "environment_end"
	case InlineMath:
		return "inline_math"
	case DisplayMath:
		return "display_math"
	case ParagraphBreak:
		return "paragraph_break"
	case Comment:
		return "comment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Span is a half-open byte range [Start, End) into the parsed text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span width in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Token is one syntactic unit. Tokens are values; the parser never hands out
// a token it will later modify.
type Token struct {
	Kind Kind   `json:"kind"`
	Raw  string `json:"raw"`
	Span Span   `json:"span"`
	// Depth is the environment nesting depth the token sits at. EnvBegin and
	// EnvEnd carry the depth outside the environment they delimit.
	Depth int `json:"depth"`
	// Name is the environment name for EnvBegin/EnvEnd and math
	// environments, or the control sequence name (without backslash) for
	// commands. Empty for everything else.
	Name string `json:"name,omitempty"`
	// Args reports whether a command token absorbed at least one argument.
	Args bool `json:"args,omitempty"`
}

// IsMath reports whether the token is an inline or display math span.
func (t Token) IsMath() bool {
	return t.Kind == InlineMath || t.Kind == DisplayMath
}

// IsMathEnv reports whether the token is a math span written as a
// \begin{...}\end{...} environment.
func (t Token) IsMathEnv() bool {
	return t.IsMath() && t.Name != ""
}

// depthAfter returns the nesting depth in effect right after t.
func (t Token) depthAfter() int {
	if t.Kind == EnvBegin {
		return t.Depth + 1
	}
	return t.Depth
}

// Join concatenates the raw text of tokens in order.
func Join(tokens []Token) string {
	n := 0
	for _, t := range tokens {
		n += len(t.Raw)
	}
	buf := make([]byte, 0, n)
	for _, t := range tokens {
		buf = append(buf, t.Raw...)
	}
	return string(buf)
}
