package latex

import (
	"regexp"
	"strings"
)

// Placeholder marks where the body sits inside Template.Text.
const Placeholder = "<<texsplit:body>>"

const (
	defaultBegin = `\begin{document}`
	defaultEnd   = `\end{document}`
)

var (
	beginDocument = regexp.MustCompile(`\\begin\s*\{\s*document\s*\}`)
	endDocument   = regexp.MustCompile(`\\end\s*\{\s*document\s*\}`)
)

// Template is everything outside the document body. Text holds the source
// with the body, together with both markers, replaced by Placeholder. Begin
// and End keep the markers exactly as written so Fill restores them verbatim.
type Template struct {
	Text  string `json:"text"`
	Begin string `json:"begin"`
	End   string `json:"end"`
}

// Extract separates a document into its template and body. The body starts
// after the first \begin{document} and ends before the last \end{document};
// markers inside % comments are ignored.
func Extract(text string) (Template, string, error) {
	if strings.Contains(text, Placeholder) {
		return Template{}, "", &StructureError{Reason: "input already contains the body placeholder " + Placeholder}
	}

	begins := liveMatches(text, beginDocument)
	if len(begins) == 0 {
		return Template{}, "", &StructureError{Reason: `missing \begin{document}`}
	}
	ends := liveMatches(text, endDocument)
	if len(ends) == 0 {
		return Template{}, "", &StructureError{Reason: `missing \end{document}`}
	}

	b, e := begins[0], ends[len(ends)-1]
	if e[0] < b[1] {
		return Template{}, "", &StructureError{Reason: `\end{document} precedes \begin{document}`}
	}

	t := Template{
		Text:  text[:b[0]] + Placeholder + text[e[1]:],
		Begin: text[b[0]:b[1]],
		End:   text[e[0]:e[1]],
	}
	return t, text[b[1]:e[0]], nil
}

// NewTemplate rebuilds a Template from text previously produced as
// Template.Text. The markers are taken to be the canonical
// \begin{document} and \end{document}.
func NewTemplate(text string) (Template, error) {
	switch n := strings.Count(text, Placeholder); n {
	case 1:
		return Template{Text: text, Begin: defaultBegin, End: defaultEnd}, nil
	case 0:
		return Template{}, &StructureError{Reason: "template has no body placeholder"}
	default:
		return Template{}, &StructureError{Reason: "template has more than one body placeholder"}
	}
}

// Fill substitutes body, wrapped in the original markers, for the placeholder.
func (t Template) Fill(body string) string {
	begin, end := t.Begin, t.End
	if begin == "" {
		begin = defaultBegin
	}
	if end == "" {
		end = defaultEnd
	}
	return strings.Replace(t.Text, Placeholder, begin+body+end, 1)
}

// liveMatches returns the matches of re that are not commented out.
func liveMatches(text string, re *regexp.Regexp) [][]int {
	var out [][]int
	for _, m := range re.FindAllStringIndex(text, -1) {
		if !commentedAt(text, m[0]) {
			out = append(out, m)
		}
	}
	return out
}

// commentedAt reports whether an unescaped % precedes pos on its line.
func commentedAt(text string, pos int) bool {
	start := strings.LastIndexByte(text[:pos], '\n') + 1
	return commentStart(text[start:pos]) >= 0
}

// commentStart returns the offset of the first unescaped % in line, or -1.
func commentStart(line string) int {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '%':
			return i
		}
	}
	return -1
}
