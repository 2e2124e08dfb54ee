package validator

import (
	"errors"
	"testing"
)

func TestCheckStructure(t *testing.T) {
	source := "\\section{Results}\\label{sec:res}\nWe prove $a^2+b^2=c^2$ in \\cite[p.~4]{pyth}.\n\n\\begin{figure}\n\\caption{A \\emph{nice} plot}\n\\end{figure}\n"

	tests := []struct {
		name       string
		translated string
		wantErr    bool
	}{
		{
			name:       "faithful translation",
			translated: "\\section{Ergebnisse}\\label{sec:res}\nWir beweisen $a^2 + b^2 = c^2$ in \\cite[S.~4]{pyth}.\n\n\\begin{figure}\n\\caption{Ein \\emph{schöner} Plot}\n\\end{figure}\n",
		},
		{
			name:       "math altered",
			translated: "\\section{Ergebnisse}\\label{sec:res}\nWir beweisen $a^2+b^2=d^2$ in \\cite[S.~4]{pyth}.\n\n\\begin{figure}\n\\caption{Ein \\emph{schöner} Plot}\n\\end{figure}\n",
			wantErr:    true,
		},
		{
			name:       "label translated",
			translated: "\\section{Ergebnisse}\\label{abs:erg}\nWir beweisen $a^2+b^2=c^2$ in \\cite[S.~4]{pyth}.\n\n\\begin{figure}\n\\caption{Ein \\emph{schöner} Plot}\n\\end{figure}\n",
			wantErr:    true,
		},
		{
			name:       "environment dropped",
			translated: "\\section{Ergebnisse}\\label{sec:res}\nWir beweisen $a^2+b^2=c^2$ in \\cite[S.~4]{pyth}.\n\n\\caption{Ein \\emph{schöner} Plot}\n",
			wantErr:    true,
		},
		{
			name:       "command dropped inside caption",
			translated: "\\section{Ergebnisse}\\label{sec:res}\nWir beweisen $a^2+b^2=c^2$ in \\cite[S.~4]{pyth}.\n\n\\begin{figure}\n\\caption{Ein schöner Plot}\n\\end{figure}\n",
			wantErr:    true,
		},
		{
			name:       "unterminated math",
			translated: "\\section{Ergebnisse}\\label{sec:res}\nWir beweisen $a^2+b^2=c^2 in",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStructure(source, tt.translated)
			if tt.wantErr {
				var merr *MismatchError
				if !errors.As(err, &merr) {
					t.Fatalf("expected MismatchError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckStructure_UnparseableSource(t *testing.T) {
	if err := CheckStructure("broken $x", "anything"); err != nil {
		t.Errorf("expected unparseable source to pass, got %v", err)
	}
}

func TestRefKey(t *testing.T) {
	if got := refKey(`\cite[see][p. 3]{a, b}`); got != `\cite{a,b}` {
		t.Errorf("refKey = %q", got)
	}
}
