package latex

import "strings"

// textCommands take a single argument that is natural-language text.
var textCommands = map[string]bool{
	"textbf":        true,
	"textit":        true,
	"textsl":        true,
	"textsc":        true,
	"textrm":        true,
	"textsf":        true,
	"emph":          true,
	"underline":     true,
	"part":          true,
	"chapter":       true,
	"section":       true,
	"subsection":    true,
	"subsubsection": true,
	"paragraph":     true,
	"subparagraph":  true,
	"caption":       true,
	"footnote":      true,
	"title":         true,
	"mbox":          true,
}

// TextArgument splits a text-bearing command token such as \section[short]{Title}
// into the head up to and including the opening brace of its last argument,
// the argument content, and the closing brace. ok is false for any other
// token.
func TextArgument(t Token) (head, inner, tail string, ok bool) {
	if t.Kind != Command || !t.Args || !textCommands[strings.TrimSuffix(t.Name, "*")] {
		return "", "", "", false
	}
	raw := t.Raw
	i := 1 + len(t.Name)
	last := -1
	for i < len(raw) {
		i = skipInlineSpace(raw, i)
		if i >= len(raw) {
			break
		}
		var end int
		var found bool
		switch raw[i] {
		case '{':
			end, found = matchBrace(raw, i)
			last = i
		case '[':
			end, found = matchBracket(raw, i)
		}
		if !found {
			break
		}
		i = end
	}
	if last < 0 || i != len(raw) || raw[len(raw)-1] != '}' {
		return "", "", "", false
	}
	end, _ := matchBrace(raw, last)
	if end != len(raw) {
		return "", "", "", false
	}
	return raw[:last+1], raw[last+1 : len(raw)-1], "}", true
}

// Prose extracts the natural-language text of a LaTeX fragment: plain text
// runs plus the text arguments of text-bearing commands. Math, comments,
// and other commands are dropped. A fragment that fails to parse yields its
// input unchanged.
func Prose(fragment string) string {
	tokens, err := Parse(fragment)
	if err != nil {
		return fragment
	}
	var b strings.Builder
	writeProse(&b, tokens)
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeProse(b *strings.Builder, tokens []Token) {
	for i, t := range tokens {
		switch t.Kind {
		case PlainText:
			if i > 0 && tokens[i-1].Kind == EnvBegin && verbatimEnvs[tokens[i-1].Name] {
				continue
			}
			b.WriteString(t.Raw)
		case ParagraphBreak:
			b.WriteString("\n")
		case Command:
			if _, inner, _, ok := TextArgument(t); ok {
				if sub, err := Parse(inner); err == nil {
					b.WriteByte(' ')
					writeProse(b, sub)
					b.WriteByte(' ')
				}
				continue
			}
			b.WriteByte(' ')
		default:
			b.WriteByte(' ')
		}
	}
}
