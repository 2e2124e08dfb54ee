package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/valpere/texsplit/internal/latex"
)

// MismatchError reports a translation whose LaTeX structure differs from the
// source chunk it was produced from.
type MismatchError struct {
	Reason string
}

func (e *MismatchError) Error() string {
	return "structure mismatch: " + e.Reason
}

// referenceCommands carry keys or paths that must survive translation
// byte for byte.
var referenceCommands = map[string]bool{
	"label":             true,
	"ref":               true,
	"eqref":             true,
	"pageref":           true,
	"autoref":           true,
	"cref":              true,
	"Cref":              true,
	"cite":              true,
	"citet":             true,
	"citep":             true,
	"citeauthor":        true,
	"citeyear":          true,
	"nocite":            true,
	"url":               true,
	"includegraphics":   true,
	"input":             true,
	"include":           true,
	"bibliography":      true,
	"bibliographystyle": true,
}

type signature struct {
	envs     []string
	math     []string
	refs     []string
	commands map[string]int
}

// CheckStructure compares the LaTeX structure of translated against source:
// the sequence of environments, every math span, every reference-like
// command, and the multiset of control words must be unchanged, and
// translated must parse. Whitespace differences are ignored. A source that
// does not parse itself cannot be checked and passes.
func CheckStructure(source, translated string) error {
	want, err := signatureOf(source)
	if err != nil {
		return nil
	}
	got, err := signatureOf(translated)
	if err != nil {
		return &MismatchError{Reason: fmt.Sprintf("translation does not parse: %v", err)}
	}

	if d := firstDiff(want.envs, got.envs); d != "" {
		return &MismatchError{Reason: "environments differ: " + d}
	}
	if d := firstDiff(want.math, got.math); d != "" {
		return &MismatchError{Reason: "math differs: " + d}
	}
	if d := firstDiff(want.refs, got.refs); d != "" {
		return &MismatchError{Reason: "references differ: " + d}
	}
	if d := countDiff(want.commands, got.commands); d != "" {
		return &MismatchError{Reason: "commands differ: " + d}
	}
	return nil
}

func signatureOf(text string) (signature, error) {
	tokens, err := latex.Parse(text)
	if err != nil {
		return signature{}, err
	}
	sig := signature{commands: make(map[string]int)}
	sig.walk(tokens)
	return sig, nil
}

func (s *signature) walk(tokens []latex.Token) {
	for _, t := range tokens {
		switch {
		case t.Kind == latex.EnvBegin:
			s.envs = append(s.envs, `\begin{`+t.Name+`}`)
		case t.Kind == latex.EnvEnd:
			s.envs = append(s.envs, `\end{`+t.Name+`}`)
		case t.IsMath():
			s.math = append(s.math, compact(t.Raw))
		case t.Kind == latex.Command:
			if t.Name == "" || !unicode.IsLetter(rune(t.Name[0])) {
				continue
			}
			name := strings.TrimSuffix(t.Name, "*")
			s.commands[t.Name]++
			if referenceCommands[name] {
				s.refs = append(s.refs, refKey(t.Raw))
			}
			if _, inner, _, ok := latex.TextArgument(t); ok {
				if sub, err := latex.Parse(inner); err == nil {
					s.walk(sub)
				}
			}
		}
	}
}

// refKey reduces a reference command to its name and mandatory arguments.
// Optional [...] arguments such as page notes are translatable text.
func refKey(raw string) string {
	var b strings.Builder
	braces, brackets := 0, 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw):
			if brackets == 0 {
				b.WriteByte(c)
				b.WriteByte(raw[i+1])
			}
			i++
			continue
		case c == '{':
			braces++
		case c == '}':
			braces--
		case c == '[' && braces == 0:
			brackets++
			continue
		case c == ']' && braces == 0 && brackets > 0:
			brackets--
			continue
		}
		if brackets == 0 {
			b.WriteByte(c)
		}
	}
	return compact(b.String())
}

// compact drops all whitespace.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func firstDiff(want, got []string) string {
	for i := 0; i < len(want) && i < len(got); i++ {
		if want[i] != got[i] {
			return fmt.Sprintf("expected %q, found %q", want[i], got[i])
		}
	}
	switch {
	case len(want) > len(got):
		return fmt.Sprintf("missing %q", want[len(got)])
	case len(got) > len(want):
		return fmt.Sprintf("unexpected %q", got[len(want)])
	}
	return ""
}

func countDiff(want, got map[string]int) string {
	names := make(map[string]bool, len(want)+len(got))
	for n := range want {
		names[n] = true
	}
	for n := range got {
		names[n] = true
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	for _, n := range sorted {
		if want[n] != got[n] {
			return fmt.Sprintf(`\%s appears %d times, expected %d`, n, got[n], want[n])
		}
	}
	return ""
}
