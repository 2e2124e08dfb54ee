package latex

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestParse_Kinds(t *testing.T) {
	tokens, err := Parse("Hello \\textbf{world} and $x$.\n\nNext")
	require.NoError(t, err)

	assert.Equal(t, []Kind{PlainText, Command, PlainText, InlineMath, PlainText, ParagraphBreak, PlainText}, kinds(tokens))
	assert.Equal(t, "Hello ", tokens[0].Raw)
	assert.Equal(t, "textbf", tokens[1].Name)
	assert.True(t, tokens[1].Args)
	assert.Equal(t, " and ", tokens[2].Raw)
	assert.Equal(t, "$x$", tokens[3].Raw)
	assert.Equal(t, Span{Start: 29, End: 31}, tokens[5].Span)
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain words only",
		"A\n\n\\begin{figure}[h]\n\\centering\nX\n\\end{figure}\n\nB.",
		"50\\% off, see \\cite[p.~3]{knuth} and \\ref{fig:a}.",
		"$$E = mc^2$$ and \\[ a \\] and \\( b \\)",
		"\\begin{equation}\na = b \\label{eq}\n\\end{equation}",
		"\\begin{verbatim}\n$ { % raw\n\\end{verbatim}\ntail",
		"a % comment with $ and {\nb",
		"\\verb|$x{| then \\verb+%+ done",
		"line\\\\[2pt]\nnext \\\\* more",
		"\u4e2d\u6587 \\emph{\u00e9t\u00e9} \u00fcber",
		"a } b \\end{itemize} c",
		"\\begin{itemize}\n\\item one\n\n\\item two",
		"{\\bf grouped} text",
		"trailing backslash \\",
	}
	for _, in := range inputs {
		tokens, err := Parse(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, in, Join(tokens), "input %q", in)

		pos := 0
		for _, tok := range tokens {
			assert.Equal(t, pos, tok.Span.Start, "input %q", in)
			assert.Equal(t, tok.Raw, in[tok.Span.Start:tok.Span.End], "input %q", in)
			pos = tok.Span.End
		}
	}
}

// checkStream asserts that tokens tile in exactly and that every interior
// safe position lies at depth 0.
func checkStream(t *testing.T, in string, tokens []Token) {
	t.Helper()
	if got := Join(tokens); got != in {
		t.Fatalf("round trip of %q gave %q", in, got)
	}
	pos := 0
	for _, tok := range tokens {
		if tok.Span.Start != pos || in[tok.Span.Start:tok.Span.End] != tok.Raw {
			t.Fatalf("token %q of %q has span %v, want start %d", tok.Raw, in, tok.Span, pos)
		}
		pos = tok.Span.End
	}
	for _, i := range Classify(tokens).Indices() {
		if d := tokens[i-1].depthAfter(); d != 0 {
			t.Fatalf("position %d of %q is safe at depth %d", i, in, d)
		}
	}
}

var fragments = []string{
	"{", "}", "$", "$$", "%", "% note\n", "\n", "\n\n", " ", "a", "words",
	"\\begin{itemize}", "\\end{itemize}", "\\begin{figure}", "\\end{figure}",
	"\\begin{equation}", "\\end{equation}", "\\item ", "\\emph", "\\cite{x}",
	"[", "]", "\\\\", "\\", "\\[", "\\]", "\\verb|$|",
}

func randomSource(r *rand.Rand) string {
	var b strings.Builder
	for range r.IntN(24) {
		b.WriteString(fragments[r.IntN(len(fragments))])
	}
	return b.String()
}

func TestParse_RandomSources(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	parsed := 0
	for range 5000 {
		in := randomSource(r)
		tokens, err := Parse(in)
		if err != nil {
			var perr *ParseError
			require.ErrorAs(t, err, &perr, "input %q", in)
			continue
		}
		parsed++
		checkStream(t, in, tokens)
	}
	assert.Positive(t, parsed)
}

func FuzzParse(f *testing.F) {
	f.Add("A\n\n\\begin{figure}[h]\nX\n\\end{figure}\n\nB.")
	f.Add("$x$ and {\\bf y} % c\n\n\\begin{itemize}\\item a")
	f.Add("\\cite{x}\n{\\bf y}\n\n$$a$$")
	r := rand.New(rand.NewPCG(3, 5))
	for range 20 {
		f.Add(randomSource(r))
	}
	f.Fuzz(func(t *testing.T, in string) {
		tokens, err := Parse(in)
		if err != nil {
			return
		}
		checkStream(t, in, tokens)
	})
}

func TestParse_ArgumentsAcrossLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"group on the next line after arguments", "\\cite{x}\n{\\bf y}", []string{"\\cite{x}", "\n", "{\\bf y}"}},
		{"first argument on the next line", "\\section\n{Intro}", []string{"\\section\n{Intro}"}},
		{"blanks between arguments", "\\cite {x} [p. 3]", []string{"\\cite {x} [p. 3]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Parse(tt.in)
			require.NoError(t, err)

			raws := make([]string, len(tokens))
			for i, tok := range tokens {
				raws[i] = tok.Raw
			}
			assert.Equal(t, tt.want, raws)
			assert.True(t, tokens[0].Args)
		})
	}
}

func TestParse_Environments(t *testing.T) {
	tokens, err := Parse("A\n\n\\begin{figure}[h]\n\\centering\nX\n\\end{figure}\n\nB.")
	require.NoError(t, err)

	require.Len(t, tokens, 9)
	assert.Equal(t, EnvBegin, tokens[2].Kind)
	assert.Equal(t, "figure", tokens[2].Name)
	assert.Equal(t, `\begin{figure}[h]`, tokens[2].Raw)
	assert.Equal(t, 0, tokens[2].Depth)
	assert.Equal(t, 1, tokens[4].Depth)
	assert.Equal(t, "centering", tokens[4].Name)
	assert.False(t, tokens[4].Args)
	assert.Equal(t, EnvEnd, tokens[6].Kind)
	assert.Equal(t, 0, tokens[6].Depth)
}

func TestParse_MathEnvironmentIsOneToken(t *testing.T) {
	in := "\\begin{align*}\na &= b \\\\\nc &= d\n\\end{align*}"
	tokens, err := Parse(in)
	require.NoError(t, err)

	require.Len(t, tokens, 1)
	assert.Equal(t, DisplayMath, tokens[0].Kind)
	assert.Equal(t, "align*", tokens[0].Name)
	assert.True(t, tokens[0].IsMathEnv())
}

func TestParse_VerbatimIsOpaque(t *testing.T) {
	tokens, err := Parse("\\begin{verbatim}\n$ { %\n\\end{verbatim}")
	require.NoError(t, err)

	assert.Equal(t, []Kind{EnvBegin, PlainText, EnvEnd}, kinds(tokens))
	assert.Equal(t, "\n$ { %\n", tokens[1].Raw)
	assert.Equal(t, 1, tokens[1].Depth)
	assert.Equal(t, 0, tokens[2].Depth)
}

func TestParse_CommentHidesSyntax(t *testing.T) {
	tokens, err := Parse("a % $ not math {\nb")
	require.NoError(t, err)

	assert.Equal(t, []Kind{PlainText, Comment, PlainText}, kinds(tokens))
	assert.Equal(t, "% $ not math {", tokens[1].Raw)
}

func TestParse_Tolerance(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Kind
	}{
		{"stray closing brace", "a } b", []Kind{PlainText, Command, PlainText}},
		{"unmatched end", "x \\end{itemize} y", []Kind{PlainText, Command, PlainText}},
		{"control symbol", "50\\% off", []Kind{PlainText, Command, PlainText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kinds(tokens))
		})
	}
}

func TestParse_UnclosedEnvironmentKeepsDepth(t *testing.T) {
	tokens, err := Parse("\\begin{itemize}\n\\item a\n\nb")
	require.NoError(t, err)

	for _, tok := range tokens[1:] {
		assert.Equal(t, 1, tok.Depth, "token %q", tok.Raw)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		offset    int
		line      int
		construct string
	}{
		{"inline math", "abc\n$x+y", 4, 2, "inline math $"},
		{"display math", "$$x", 0, 1, "display math $$"},
		{"bracket math", "a\n\n\\[ x", 3, 3, `display math \[`},
		{"paren math", "\\( x", 0, 1, `inline math \(`},
		{"brace group", "text {unclosed", 5, 1, "brace group"},
		{"command argument", "\\textbf{oops", 7, 1, "brace group"},
		{"math environment", "\\begin{equation} x", 0, 1, "math environment equation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.offset, perr.Offset)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.construct, perr.Construct)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "environment_begin", EnvBegin.String())
	assert.Equal(t, "paragraph_break", ParagraphBreak.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
