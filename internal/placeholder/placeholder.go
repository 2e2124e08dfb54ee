// Package placeholder protects LaTeX markup during translation by plain-text
// machine translation services. Math, comments, environment delimiters and
// non-text commands are replaced by numbered markers ([PH0], [PH1], …) that
// the service is expected to pass through; the text arguments of
// text-bearing commands such as \section{...} or \emph{...} stay
// translatable. After translation, Restore substitutes the markers back.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/texsplit/internal/latex"
)

// placeholder reference in translated text
var rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)

// Protect replaces LaTeX markup in text with numbered placeholders [PH0],
// [PH1], … in the order it appears. Adjacent pieces of markup, and the
// blanks between them, share one placeholder. It returns the modified text
// and the slice of captured originals so Restore can put them back.
//
// Text that does not parse is returned unchanged with no markers.
func Protect(text string) (string, []string) {
	tokens, err := latex.Parse(text)
	if err != nil {
		return text, nil
	}
	p := &protector{}
	p.tokens(tokens)
	p.flush()
	return p.out.String(), p.markers
}

type protector struct {
	out     strings.Builder
	pending strings.Builder
	markers []string
}

// hide queues raw markup for the next placeholder.
func (p *protector) hide(raw string) {
	p.pending.WriteString(raw)
}

// flush emits the queued markup as one placeholder.
func (p *protector) flush() {
	if p.pending.Len() == 0 {
		return
	}
	fmt.Fprintf(&p.out, "[PH%d]", len(p.markers))
	p.markers = append(p.markers, p.pending.String())
	p.pending.Reset()
}

func (p *protector) text(raw string) {
	if strings.TrimSpace(raw) == "" && p.pending.Len() > 0 {
		p.hide(raw)
		return
	}
	p.flush()
	p.out.WriteString(raw)
}

func (p *protector) tokens(tokens []latex.Token) {
	verbatim := false
	for _, t := range tokens {
		switch t.Kind {
		case latex.PlainText:
			if verbatim {
				p.hide(t.Raw)
				continue
			}
			p.text(t.Raw)
		case latex.ParagraphBreak:
			p.text(t.Raw)
		case latex.Command:
			head, inner, tail, ok := latex.TextArgument(t)
			if !ok {
				p.hide(t.Raw)
				continue
			}
			sub, err := latex.Parse(inner)
			if err != nil {
				p.hide(t.Raw)
				continue
			}
			p.hide(head)
			p.tokens(sub)
			p.hide(tail)
		default:
			p.hide(t.Raw)
		}
		verbatim = t.Kind == latex.EnvBegin && latex.IsVerbatimEnv(t.Name)
	}
}

// Restore substitutes [PHn] markers in text back with the originals captured
// by Protect. Markers missing from the translated text are silently ignored;
// unrecognised indices leave the placeholder as-is.
func Restore(text string, markers []string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		idx := 0
		fmt.Sscanf(sub[1], "%d", &idx)
		if idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint returns a short sentence to append to an LLM prompt so the
// model knows to leave placeholders intact.
func InstructionHint() string {
	return "Preserve all [PHn] markers exactly as they appear. Do not translate, move, or remove them."
}

// Validate checks whether all markers that were created by Protect are still
// present in the translated text. It returns the list of missing indices.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
