package refiner

import "context"

// Refiner polishes a draft translation of one LaTeX chunk. Implementations
// must leave markup untouched; callers re-check structure and fall back to
// the draft when the refinement breaks it.
type Refiner interface {
	Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error)
}
