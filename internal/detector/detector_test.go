package detector

import (
	"testing"

	lingua "github.com/pemistahl/lingua-go"
	"github.com/stretchr/testify/assert"
)

// One detector for the whole package: building lingua models is slow.
var shared = New()

func TestDetect_Empty(t *testing.T) {
	lang, ok := shared.Detect("")
	assert.False(t, ok)
	assert.Equal(t, lingua.Unknown, lang)

	code, ok := shared.DetectISO("")
	assert.False(t, ok)
	assert.Empty(t, code)
}

func TestDetectISO(t *testing.T) {
	cases := []struct{ want, text string }{
		{"EN", "We prove that the operator is bounded on every Hilbert space."},
		{"DE", "Wir zeigen, dass der Operator auf jedem Hilbertraum beschränkt ist."},
		{"FR", "Nous montrons que l'opérateur est borné sur tout espace de Hilbert."},
		{"UK", "Доведено, що оператор обмежений на кожному гільбертовому просторі."},
		{"ES", "Mostramos que el operador está acotado en todo espacio de Hilbert."},
		{"PL", "Pokazujemy, że operator jest ograniczony na każdej przestrzeni Hilberta."},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			code, ok := shared.DetectISO(tc.text)
			assert.True(t, ok)
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestDetectLaTeX(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "german prose around math",
			text: `\section{Einleitung} Dies ist ein Test auf Deutsch mit einer Formel $\sum_{i=1}^n x_i$ und einem Verweis \ref{sec:intro}.`,
			want: "de",
		},
		{
			name: "english with display math and comments",
			text: "% Ce commentaire est en français\nThe following theorem holds for every compact set.\n\\[ \\int_0^1 f(x)\\,dx \\]\nWe conclude the proof below.",
			want: "en",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := shared.DetectLaTeX(tt.text)
			assert.True(t, ok)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestDetectLaTeX_OnlyMarkup(t *testing.T) {
	_, ok := shared.DetectLaTeX(`\begin{equation} x^2 + y^2 = z^2 \end{equation}`)
	assert.False(t, ok)
}
