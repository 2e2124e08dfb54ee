// Package arbiter picks the best of several candidate translations of one
// LaTeX chunk, or composes a new one from them.
package arbiter

import (
	"context"

	"github.com/valpere/texsplit/internal/translator"
)

// CompositeService is the SelectedService value of a composed translation.
const CompositeService = "composite"

type EvaluationResult struct {
	SelectedService string
	CompositeText   string
	IsComposite     bool
	Reasoning       string
}

type Arbiter interface {
	Evaluate(ctx context.Context, source string, sourceLang, targetLang string, results []translator.ServiceResult) (*EvaluationResult, error)
}
