package translator

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName returns the English name of a language code, or the code
// itself when it cannot be parsed. "auto" and "" read as "the source
// language".
func LanguageName(code string) string {
	if code == "" || code == "auto" {
		return "the source language"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// BuildSystemPrompt constructs the system prompt for chat services
// translating LaTeX fragments, optionally injecting glossary terms, a
// sliding-window context, and extra instructions.
func BuildSystemPrompt(req TranslateRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a professional translator of scientific LaTeX documents. Translate fragments of a LaTeX document from %s to %s.\n",
		LanguageName(req.SourceLang), LanguageName(req.TargetLang)))
	sb.WriteString(`Rules:
- Translate only natural-language text. Keep every LaTeX command, environment, brace and bracket exactly as written.
- Never modify math: $...$, \(...\), \[...\] and math environments stay byte-for-byte identical.
- Do not translate \label, \ref, \cite, \eqref keys, file names, or other code-like arguments.
- Keep % comments and line structure as they are.
- Write fluent, natural prose in the target language rather than a word-for-word rendering.
- Respond with the translated fragment only. No explanations, no code fences.`)

	if req.Instructions != "" {
		sb.WriteString("\n")
		sb.WriteString(req.Instructions)
	}

	if len(req.GlossaryTerms) > 0 {
		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		keys := make([]string, 0, len(req.GlossaryTerms))
		for src := range req.GlossaryTerms {
			keys = append(keys, src)
		}
		sort.Strings(keys)
		for _, src := range keys {
			sb.WriteString(fmt.Sprintf("  %s → %s\n", src, req.GlossaryTerms[src]))
		}
	}

	if req.PreviousContext != "" {
		sb.WriteString(fmt.Sprintf("\n\nCONTEXT (end of the previous fragment, for continuity; do NOT translate it):\n...%s", req.PreviousContext))
	}

	return sb.String()
}

// chatMessage is a provider-neutral chat message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildChatMessages lays out the system prompt, the replayed history, and the
// fragment to translate as a chat transcript.
func buildChatMessages(req TranslateRequest) []chatMessage {
	msgs := make([]chatMessage, 0, 2+2*len(req.History))
	msgs = append(msgs, chatMessage{Role: "system", Content: BuildSystemPrompt(req)})
	for _, turn := range req.History {
		msgs = append(msgs,
			chatMessage{Role: "user", Content: turn.Source},
			chatMessage{Role: "assistant", Content: turn.Translation},
		)
	}
	return append(msgs, chatMessage{Role: "user", Content: req.Text})
}
