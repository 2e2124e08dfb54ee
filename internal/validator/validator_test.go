package validator

import (
	"strings"
	"testing"
)

var shared = New()

func TestIsValid(t *testing.T) {
	const (
		english   = "The proof relies on a compactness argument for bounded sequences."
		ukrainian = "Доведення спирається на аргумент компактності для обмежених послідовностей."
	)

	tests := []struct {
		name    string
		text    string
		target  string
		want    bool
		errPart string
	}{
		{name: "no target", text: english, target: "", want: true},
		{name: "empty", text: "", target: "en", errPart: "empty"},
		{name: "whitespace only", text: " \n\t ", target: "en", errPart: "empty"},
		{name: "too short to judge", text: "Hi", target: "uk", want: true},
		{name: "matching language", text: english, target: "en", want: true},
		{name: "code is case-insensitive", text: english, target: "EN", want: true},
		{name: "region suffix ignored", text: ukrainian, target: "uk_UA", want: true},
		{name: "wrong language", text: english, target: "uk", errPart: "expected uk but detected EN"},
		{
			name:   "markup does not count as prose",
			text:   `Доведення спирається \cite{smith2020} на аргумент $\alpha + \beta$ компактності для обмежених послідовностей.`,
			target: "uk-UA",
			want:   true,
		},
		{
			name:   "math only",
			text:   "\\begin{equation}\n\\int_0^1 f(x)\\,dx = \\sum_{n} a_n\n\\end{equation}",
			target: "uk",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shared.IsValid(tt.text, tt.target)
			if got != tt.want {
				t.Errorf("IsValid = %v, want %v (err %v)", got, tt.want, err)
			}
			switch {
			case tt.errPart == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.errPart != "" && (err == nil || !strings.Contains(err.Error(), tt.errPart)):
				t.Errorf("error = %v, want it to contain %q", err, tt.errPart)
			}
		})
	}
}

func TestBaseLanguage(t *testing.T) {
	for in, want := range map[string]string{"zh-CN": "zh", "pt_BR": "pt", "de": "de", "-x": "-x"} {
		if got := baseLanguage(in); got != want {
			t.Errorf("baseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
