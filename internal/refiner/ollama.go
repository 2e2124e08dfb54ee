package refiner

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/texsplit/internal/postprocess"
	"github.com/valpere/texsplit/internal/translator"
)

// OllamaRefiner uses a local Ollama model as a copy editor for drafts.
type OllamaRefiner struct {
	gen *translator.Generator
}

// NewOllamaRefiner creates a refiner backed by a local Ollama model.
func NewOllamaRefiner(model, baseURL string) *OllamaRefiner {
	return &OllamaRefiner{gen: translator.NewGenerator(model, baseURL, 120*time.Second)}
}

// Refine returns the polished draft with the draft's edge whitespace. An
// empty answer yields the draft unchanged.
func (r *OllamaRefiner) Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error) {
	raw, err := r.gen.Generate(ctx, buildRefinementPrompt(sourceLang, targetLang, sourceText, draftText))
	if err != nil {
		return "", fmt.Errorf("refiner: %w", err)
	}
	refined := postprocess.Clean(raw)
	if refined == "" {
		return draftText, nil
	}
	return postprocess.RestoreEdges(draftText, refined), nil
}

func buildRefinementPrompt(sourceLang, targetLang, sourceText, draftText string) string {
	src := translator.LanguageName(sourceLang)
	tgt := translator.LanguageName(targetLang)
	return fmt.Sprintf(`You copy-edit %[2]s translations of %[1]s scientific papers written in LaTeX.

Below is a LaTeX fragment and a draft translation of it. Rewrite the prose of
the draft so it reads as if a native %[2]s mathematician wrote it, using the
established %[2]s terminology.

SOURCE (%[1]s):
<<<
%[3]s
>>>

DRAFT (%[2]s):
<<<
%[4]s
>>>

Rules:
- Every command, environment, math expression, label, citation key and
  comment stays exactly as it is in the draft.
- Paragraph breaks stay where they are.
- A draft that needs no change is returned as is.

Reply with the edited fragment only.`, src, tgt, sourceText, draftText)
}
