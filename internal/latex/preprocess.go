package latex

import (
	"regexp"
	"strings"
)

var envDelimiter = regexp.MustCompile(`\\(begin|end)\s*\{\s*([^{}\s]+)\s*\}`)

// StripComments removes % comments. Escaped \% is kept, lines that held only
// a comment disappear, trailing blanks left behind are trimmed, and runs of
// blank lines collapse to a single one. Verbatim-like environments pass
// through untouched.
func StripComments(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	verbatim := ""
	blank := false

	for _, line := range lines {
		if verbatim != "" {
			out = append(out, line)
			if closesEnv(line, verbatim) {
				verbatim = ""
			}
			blank = false
			continue
		}

		if at := commentStart(line); at >= 0 {
			kept := strings.TrimRight(line[:at], " \t\r")
			if strings.TrimSpace(kept) == "" {
				continue
			}
			line = kept
		}

		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)

		if name := opensVerbatim(line); name != "" {
			verbatim = name
		}
	}
	return strings.Join(out, "\n")
}

// inlineCommands may start a line that still continues the running text.
var inlineCommands = []string{
	`\cite`, `\citet`, `\citep`, `\ref`, `\eqref`, `\cref`, `\Cref`, `\autoref`,
	`\footnote`, `\emph`, `\textbf`, `\textit`, `\eg`, `\ie`, `\etal`,
}

// mergeableEnvs are the environments whose hard-wrapped lines are joined.
var mergeableEnvs = map[string]bool{
	"document": true,
	"abstract": true,
}

// MergeSoftLines joins hard-wrapped text lines directly inside the document
// or abstract environment into single lines. Lines that begin with a
// structural command, and lines adjacent to a blank line, are left alone, so
// paragraph breaks and the layout of environments are unchanged.
func MergeSoftLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var stack []string
	prevText := false

	for _, line := range lines {
		inside := len(stack) > 0 && mergeableEnvs[stack[len(stack)-1]]
		isText := inside && textLine(line)

		if isText && prevText && len(out) > 0 && commentStart(out[len(out)-1]) < 0 {
			out[len(out)-1] = strings.TrimRight(out[len(out)-1], " \t\r") + " " + strings.TrimLeft(line, " \t")
		} else {
			out = append(out, line)
		}
		prevText = isText

		stack = trackEnvs(stack, line)
	}
	return strings.Join(out, "\n")
}

// textLine reports whether line reads as running text.
func textLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "%") {
		return false
	}
	if trimmed[0] != '\\' {
		return !strings.HasPrefix(trimmed, "$$")
	}
	for _, cmd := range inlineCommands {
		if strings.HasPrefix(trimmed, cmd) {
			rest := trimmed[len(cmd):]
			if rest == "" || !isLetter(rest[0]) {
				return true
			}
		}
	}
	return false
}

// trackEnvs applies the \begin and \end delimiters found on the live part of
// line to stack.
func trackEnvs(stack []string, line string) []string {
	if at := commentStart(line); at >= 0 {
		line = line[:at]
	}
	for _, m := range envDelimiter.FindAllStringSubmatch(line, -1) {
		if m[1] == "begin" {
			stack = append(stack, m[2])
			continue
		}
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] == m[2] {
				stack = stack[:i]
				break
			}
		}
	}
	return stack
}

func opensVerbatim(line string) string {
	if at := commentStart(line); at >= 0 {
		line = line[:at]
	}
	name := ""
	for _, m := range envDelimiter.FindAllStringSubmatch(line, -1) {
		switch {
		case m[1] == "begin" && verbatimEnvs[m[2]]:
			name = m[2]
		case m[1] == "end" && m[2] == name:
			name = ""
		}
	}
	return name
}

func closesEnv(line, name string) bool {
	for _, m := range envDelimiter.FindAllStringSubmatch(line, -1) {
		if m[1] == "end" && m[2] == name {
			return true
		}
	}
	return false
}
