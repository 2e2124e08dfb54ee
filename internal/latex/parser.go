package latex

import (
	"strings"
	"unicode/utf8"
)

// mathEnvs are environments whose whole body is math. They are emitted as a
// single math token from \begin through \end.
var mathEnvs = map[string]Kind{
	"equation":    DisplayMath,
	"equation*":   DisplayMath,
	"align":       DisplayMath,
	"align*":      DisplayMath,
	"alignat":     DisplayMath,
	"alignat*":    DisplayMath,
	"flalign":     DisplayMath,
	"flalign*":    DisplayMath,
	"gather":      DisplayMath,
	"gather*":     DisplayMath,
	"multline":    DisplayMath,
	"multline*":   DisplayMath,
	"eqnarray":    DisplayMath,
	"eqnarray*":   DisplayMath,
	"displaymath": DisplayMath,
	"dmath":       DisplayMath,
	"dmath*":      DisplayMath,
	"math":        InlineMath,
}

// verbatimEnvs hold content that must never be scanned for syntax.
var verbatimEnvs = map[string]bool{
	"verbatim":   true,
	"verbatim*":  true,
	"Verbatim":   true,
	"lstlisting": true,
	"minted":     true,
	"comment":    true,
}

// Parse tokenizes body into an ordered token stream. Concatenating the Raw
// text of the returned tokens reproduces body exactly.
//
// Parse fails with *ParseError only when a math span or a brace group is
// still open at end of input. Every other oddity (stray closing braces,
// \end without a matching \begin, environments left open) is tolerated.
func Parse(body string) ([]Token, error) {
	p := &parser{src: body}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.toks, nil
}

type parser struct {
	src   string
	pos   int
	toks  []Token
	stack []string
}

func (p *parser) run() error {
	for p.pos < len(p.src) {
		var err error
		switch c := p.src[p.pos]; {
		case c == '\\':
			err = p.controlSequence()
		case c == '$':
			err = p.dollar()
		case c == '%':
			p.comment()
		case c == '{':
			err = p.group()
		case c == '}':
			p.emit(Command, p.pos, p.pos+1, "", false)
			p.pos++
		case isSpace(c):
			p.whitespace()
		default:
			p.text()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) depth() int { return len(p.stack) }

func (p *parser) emitAt(kind Kind, start, end, depth int, name string, args bool) {
	p.toks = append(p.toks, Token{
		Kind:  kind,
		Raw:   p.src[start:end],
		Span:  Span{Start: start, End: end},
		Depth: depth,
		Name:  name,
		Args:  args,
	})
}

func (p *parser) emit(kind Kind, start, end int, name string, args bool) {
	p.emitAt(kind, start, end, p.depth(), name, args)
}

// emitText appends plain text, extending the previous token when it is
// adjacent plain text.
func (p *parser) emitText(start, end int) {
	if start == end {
		return
	}
	if n := len(p.toks); n > 0 {
		last := &p.toks[n-1]
		if last.Kind == PlainText && last.Span.End == start && last.Depth == p.depth() {
			last.Span.End = end
			last.Raw = p.src[last.Span.Start:end]
			return
		}
	}
	p.emit(PlainText, start, end, "", false)
}

func (p *parser) text() {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' || c == '$' || c == '%' || c == '{' || c == '}' || isSpace(c) {
			break
		}
		p.pos++
	}
	p.emitText(start, p.pos)
}

// whitespace consumes a run of blanks. A run holding two or more newlines is
// a paragraph break; anything shorter is ordinary text.
func (p *parser) whitespace() {
	start := p.pos
	newlines := 0
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		if p.src[p.pos] == '\n' {
			newlines++
		}
		p.pos++
	}
	if newlines >= 2 {
		p.emit(ParagraphBreak, start, p.pos, "", false)
		return
	}
	p.emitText(start, p.pos)
}

func (p *parser) comment() {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '\n' {
		p.pos++
	}
	p.emit(Comment, start, p.pos, "", false)
}

// group emits a bare {...} group as one opaque command token.
func (p *parser) group() error {
	end, ok := matchBrace(p.src, p.pos)
	if !ok {
		return newParseError(p.src, p.pos, "brace group")
	}
	p.emit(Command, p.pos, end, "", true)
	p.pos = end
	return nil
}

func (p *parser) dollar() error {
	start := p.pos
	if strings.HasPrefix(p.src[start:], "$$") {
		for i := start + 2; i < len(p.src); i++ {
			switch p.src[i] {
			case '\\':
				i++
			case '$':
				if i+1 < len(p.src) && p.src[i+1] == '$' {
					p.emit(DisplayMath, start, i+2, "", false)
					p.pos = i + 2
					return nil
				}
			}
		}
		return newParseError(p.src, start, "display math $$")
	}

	for i := start + 1; i < len(p.src); i++ {
		switch p.src[i] {
		case '\\':
			i++
		case '%':
			for i < len(p.src) && p.src[i] != '\n' {
				i++
			}
		case '$':
			p.emit(InlineMath, start, i+1, "", false)
			p.pos = i + 1
			return nil
		}
	}
	return newParseError(p.src, start, "inline math $")
}

// delimitedMath handles \[...\] and \(...\).
func (p *parser) delimitedMath(closer string, kind Kind, construct string) error {
	start := p.pos
	for i := start + 2; i < len(p.src); i++ {
		if p.src[i] != '\\' {
			continue
		}
		if strings.HasPrefix(p.src[i:], closer) {
			end := i + len(closer)
			p.emit(kind, start, end, "", false)
			p.pos = end
			return nil
		}
		i++
	}
	return newParseError(p.src, start, construct)
}

func (p *parser) controlSequence() error {
	start := p.pos
	if start+1 >= len(p.src) {
		p.emit(Command, start, len(p.src), "", false)
		p.pos = len(p.src)
		return nil
	}

	next := p.src[start+1]
	if !isLetter(next) {
		switch next {
		case '[':
			return p.delimitedMath(`\]`, DisplayMath, `display math \[`)
		case '(':
			return p.delimitedMath(`\)`, InlineMath, `inline math \(`)
		}
		_, size := utf8.DecodeRuneInString(p.src[start+1:])
		p.pos = start + 1 + size
		name := p.src[start+1 : p.pos]
		args := false
		if name == `\` {
			if p.pos < len(p.src) && p.src[p.pos] == '*' {
				p.pos++
			}
			if p.pos < len(p.src) && p.src[p.pos] == '[' {
				if end, ok := matchBracket(p.src, p.pos); ok {
					p.pos = end
					args = true
				}
			}
		}
		p.emit(Command, start, p.pos, name, args)
		return nil
	}

	i := start + 1
	for i < len(p.src) && isLetter(p.src[i]) {
		i++
	}
	if i < len(p.src) && p.src[i] == '*' {
		i++
	}
	name := p.src[start+1 : i]
	p.pos = i

	switch name {
	case "begin":
		return p.begin(start)
	case "end":
		return p.end(start)
	case "verb", "verb*":
		p.verb(start, name)
		return nil
	}

	args, err := p.arguments(true)
	if err != nil {
		return err
	}
	p.emit(Command, start, p.pos, name, args)
	return nil
}

// arguments absorbs the {...} and [...] groups that follow a control word.
// With loose set, blanks may separate them, and a single line break may
// come before the first one. A group on the line after an absorbed group
// belongs to the text, not to the command.
func (p *parser) arguments(loose bool) (bool, error) {
	absorbed := false
	for {
		k := p.pos
		switch {
		case loose && absorbed:
			k = skipBlanks(p.src, k)
		case loose:
			k = skipInlineSpace(p.src, k)
		}
		if k >= len(p.src) {
			return absorbed, nil
		}
		switch p.src[k] {
		case '{':
			end, ok := matchBrace(p.src, k)
			if !ok {
				return absorbed, newParseError(p.src, k, "brace group")
			}
			p.pos = end
		case '[':
			end, ok := matchBracket(p.src, k)
			if !ok {
				return absorbed, nil
			}
			p.pos = end
		default:
			return absorbed, nil
		}
		absorbed = true
	}
}

// envName reads the {name} argument of \begin or \end. ok is false when the
// control word is not followed by a brace group on the same line.
func (p *parser) envName() (name string, ok bool, err error) {
	k := p.pos
	for k < len(p.src) && (p.src[k] == ' ' || p.src[k] == '\t') {
		k++
	}
	if k >= len(p.src) || p.src[k] != '{' {
		return "", false, nil
	}
	end, found := matchBrace(p.src, k)
	if !found {
		return "", false, newParseError(p.src, k, "brace group")
	}
	p.pos = end
	return strings.TrimSpace(p.src[k+1 : end-1]), true, nil
}

func (p *parser) begin(start int) error {
	name, ok, err := p.envName()
	if err != nil {
		return err
	}
	if !ok {
		args, err := p.arguments(true)
		if err != nil {
			return err
		}
		p.emit(Command, start, p.pos, "begin", args)
		return nil
	}

	if kind, isMath := mathEnvs[name]; isMath {
		_, end, found := findEnvEnd(p.src, p.pos, name)
		if !found {
			return newParseError(p.src, start, "math environment "+name)
		}
		p.emit(kind, start, end, name, false)
		p.pos = end
		return nil
	}

	if _, err := p.arguments(false); err != nil {
		return err
	}
	p.emit(EnvBegin, start, p.pos, name, false)
	p.stack = append(p.stack, name)

	if verbatimEnvs[name] {
		p.verbatimBody(name)
	}
	return nil
}

// verbatimBody emits the untouched content of a verbatim-like environment
// and its closing \end. An unclosed verbatim swallows the rest of the input
// and leaves the environment open.
func (p *parser) verbatimBody(name string) {
	endStart, end, found := findEnvEnd(p.src, p.pos, name)
	if !found {
		p.emit(PlainText, p.pos, len(p.src), "", false)
		p.pos = len(p.src)
		return
	}
	if endStart > p.pos {
		p.emit(PlainText, p.pos, endStart, "", false)
	}
	p.stack = p.stack[:len(p.stack)-1]
	p.emit(EnvEnd, endStart, end, name, false)
	p.pos = end
}

func (p *parser) end(start int) error {
	name, ok, err := p.envName()
	if err != nil {
		return err
	}
	if !ok {
		p.emit(Command, start, p.pos, "end", false)
		return nil
	}

	idx := -1
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i] == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.emit(Command, start, p.pos, "end", true)
		return nil
	}
	// Closing an outer environment implicitly closes anything left open
	// inside it.
	p.stack = p.stack[:idx]
	p.emit(EnvEnd, start, p.pos, name, false)
	return nil
}

// verb handles \verb<c>...<c>. Without a usable delimiter on the same line the
// control word stands alone.
func (p *parser) verb(start int, name string) {
	if p.pos >= len(p.src) {
		p.emit(Command, start, p.pos, name, false)
		return
	}
	delim, size := utf8.DecodeRuneInString(p.src[p.pos:])
	if delim == ' ' || delim == '\n' || delim == '*' || (delim < utf8.RuneSelf && isLetter(byte(delim))) {
		p.emit(Command, start, p.pos, name, false)
		return
	}
	body := p.pos + size
	line := strings.IndexByte(p.src[body:], '\n')
	if line < 0 {
		line = len(p.src) - body
	}
	stop := strings.IndexRune(p.src[body:body+line], delim)
	if stop < 0 {
		p.emit(Command, start, p.pos, name, false)
		return
	}
	p.pos = body + stop + size
	p.emit(Command, start, p.pos, name, true)
}

// matchBrace returns the offset just past the brace that closes the group
// opened at src[open]. Escaped braces and braces inside % comments do not
// count.
func matchBrace(src string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '%':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// matchBracket returns the offset just past the ] closing the optional
// argument opened at src[open]. Brace groups inside are skipped whole. A
// paragraph break or end of input before the closing bracket means the [ was
// not an argument.
func matchBracket(src string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '{':
			end, ok := matchBrace(src, i)
			if !ok {
				return 0, false
			}
			i = end - 1
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		case '\n':
			if j := skipBlanks(src, i+1); j < len(src) && src[j] == '\n' {
				return 0, false
			}
		}
	}
	return 0, false
}

// findEnvEnd locates the \end{name} that closes an environment whose body
// starts at from. It returns the offsets of the backslash and just past the
// closing brace.
func findEnvEnd(src string, from int, name string) (int, int, bool) {
	for i := from; i < len(src); {
		rel := strings.Index(src[i:], `\end`)
		if rel < 0 {
			return 0, 0, false
		}
		at := i + rel
		k := skipBlanks(src, at+len(`\end`))
		if k < len(src) && src[k] == '{' {
			if end, ok := matchBrace(src, k); ok && strings.TrimSpace(src[k+1:end-1]) == name {
				return at, end, true
			}
		}
		i = at + len(`\end`)
	}
	return 0, 0, false
}

// skipInlineSpace skips blanks and at most one line break.
func skipInlineSpace(src string, i int) int {
	newline := false
	for i < len(src) {
		switch src[i] {
		case ' ', '\t', '\r':
		case '\n':
			if newline {
				return i
			}
			newline = true
		default:
			return i
		}
		i++
	}
	return i
}

func skipBlanks(src string, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r') {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '@'
}

// IsVerbatimEnv reports whether name is an environment whose content is
// never scanned for syntax.
func IsVerbatimEnv(name string) bool {
	return verbatimEnvs[name]
}
