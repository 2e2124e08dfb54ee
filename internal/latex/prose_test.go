package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProse(t *testing.T) {
	got := Prose("Hello \\textbf{bold} $x$ world.\n\n\\section{Intro} text \\label{sec:a}")
	assert.Equal(t, "Hello bold world. Intro text", got)
}

func TestProse_SkipsVerbatimAndMath(t *testing.T) {
	got := Prose("Before\n\\begin{verbatim}\ncode here\n\\end{verbatim}\n\\begin{equation}x\\end{equation}\nafter")
	assert.Equal(t, "Before after", got)
}

func TestTextArgument(t *testing.T) {
	tokens, err := Parse(`\section[Short]{Long \emph{title}}`)
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	head, inner, tail, ok := TextArgument(tokens[0])
	require.True(t, ok)
	assert.Equal(t, `\section[Short]{`, head)
	assert.Equal(t, `Long \emph{title}`, inner)
	assert.Equal(t, "}", tail)
}

func TestTextArgument_Rejects(t *testing.T) {
	for _, in := range []string{`\label{x}`, `\textbf`, `\cite{a}`, `$x$`} {
		tokens, err := Parse(in)
		require.NoError(t, err)
		_, _, _, ok := TextArgument(tokens[0])
		assert.False(t, ok, in)
	}
}
