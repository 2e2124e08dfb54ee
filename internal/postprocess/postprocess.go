// Package postprocess strips the wrapping LLMs put around an answer, so that
// only the translated LaTeX fragment is left.
package postprocess

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

// steps run in order; each sees the output of the previous one.
var steps = []func(string) string{
	removeThinkingBlocks,
	removeInstructionEchoes,
	removeCodeFence,
	unwrapEnvelope,
	removeQuoteWrapping,
}

// Clean returns text without reasoning blocks, a leading "Here is the
// translation:" line, an enclosing code fence, a {"latex": ...} envelope or
// enclosing quotes. The result is trimmed.
func Clean(text string) string {
	for _, step := range steps {
		text = step(text)
	}
	return strings.TrimSpace(text)
}

// RestoreEdges gives translated the leading and trailing whitespace of
// source. Models trim their answers, and the blank lines at chunk edges are
// paragraph breaks that must survive reassembly.
func RestoreEdges(source, translated string) string {
	core := strings.TrimSpace(translated)
	if core == "" {
		return source
	}
	lead := source[:len(source)-len(strings.TrimLeftFunc(source, unicode.IsSpace))]
	trail := source[len(strings.TrimRightFunc(source, unicode.IsSpace)):]
	return lead + core + trail
}

// reasoningTags are the tags models use for chain-of-thought output. RE2 has
// no backreferences, so each pair is spelled out.
var reasoningTags = []string{"thinking", "think", "reasoning", "reflection"}

var (
	closedReasoningRe = regexp.MustCompile(`(?is)` + tagAlternation(`<%s>.*?</%s>`))
	// An open tag with no closing tag means the answer was cut off inside it.
	openReasoningRe = regexp.MustCompile(`(?is)(?:` + tagAlternation(`<%s>`) + `).*$`)
)

func tagAlternation(pattern string) string {
	alts := make([]string, len(reasoningTags))
	for i, tag := range reasoningTags {
		alts[i] = strings.ReplaceAll(pattern, "%s", tag)
	}
	return strings.Join(alts, "|")
}

func removeThinkingBlocks(text string) string {
	text = closedReasoningRe.ReplaceAllString(text, "")
	return strings.TrimSpace(openReasoningRe.ReplaceAllString(text, ""))
}

// echoRes match a preamble announcing the translation. All are anchored at
// the start and end in a colon so prose such as "Here is the proof" survives.
var echoRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:refined |polished |translated )?(?:translation|text)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:refined |polished )?(?:translation|translated text)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:refined |polished |translated )?(?:translation|text)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoRes {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// fenceRe matches an answer that is one fenced block, e.g. ```latex ... ```.
var fenceRe = regexp.MustCompile("(?s)^```[A-Za-z]*[ \t]*\n(.*?)\n?```$")

func removeCodeFence(text string) string {
	if m := fenceRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// unwrapEnvelope returns the latex field when text is exactly a JSON object
// of the form {"latex": "..."}. A LaTeX brace group never decodes as one.
func unwrapEnvelope(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return text
	}
	var envelope struct {
		Latex *string `json:"latex"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil || envelope.Latex == nil {
		return text
	}
	return *envelope.Latex
}

// quotePairs maps an opening quote to its closing one.
var quotePairs = map[rune]rune{
	'"':      '"',
	'\'':     '\'',
	'\u00ab': '\u00bb', // « »
	'\u201c': '\u201d', // “ ”
	'\u2018': '\u2019', // ‘ ’
}

// removeQuoteWrapping strips one pair of enclosing quotes when neither quote
// character occurs inside them.
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	if len(runes) < 2 {
		return text
	}
	first, last := runes[0], runes[len(runes)-1]
	if closing, ok := quotePairs[first]; !ok || closing != last {
		return text
	}
	inner := string(runes[1 : len(runes)-1])
	// 'a' and 'b' is quoted text, not a wrapped answer.
	if strings.ContainsRune(inner, first) || strings.ContainsRune(inner, last) {
		return text
	}
	return strings.TrimSpace(inner)
}
