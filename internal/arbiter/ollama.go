package arbiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/texsplit/internal/postprocess"
	"github.com/valpere/texsplit/internal/translator"
)

// OllamaArbiter asks a local model to judge candidate translations.
type OllamaArbiter struct {
	gen *translator.Generator
}

func NewOllamaArbiter(model, baseURL string) *OllamaArbiter {
	return &OllamaArbiter{gen: translator.NewGenerator(model, baseURL, 60*time.Second).WithJSON()}
}

// verdict is the JSON object the model is told to answer with.
type verdict struct {
	SelectedService string `json:"selected_service"`
	FinalText       string `json:"final_text"`
	Reasoning       string `json:"reasoning"`
}

func (a *OllamaArbiter) Evaluate(ctx context.Context, source string, sourceLang, targetLang string, results []translator.ServiceResult) (*EvaluationResult, error) {
	switch len(results) {
	case 0:
		return nil, errors.New("no results to evaluate")
	case 1:
		return &EvaluationResult{
			SelectedService: results[0].ServiceName,
			CompositeText:   results[0].TranslatedText,
			Reasoning:       "Only one service available",
		}, nil
	}

	raw, err := a.gen.Generate(ctx, buildArbiterPrompt(source, sourceLang, targetLang, results))
	if err != nil {
		return nil, fmt.Errorf("arbiter: %w", err)
	}
	res, err := parseArbiterResponse(raw)
	if err != nil {
		return nil, err
	}
	return resolve(res, results)
}

func buildArbiterPrompt(source, sourceLang, targetLang string, results []translator.ServiceResult) string {
	var sb strings.Builder
	names := make([]string, 0, len(results)+1)

	fmt.Fprintf(&sb, "You review %s translations of a fragment of a %s LaTeX paper.\n\n",
		translator.LanguageName(targetLang), translator.LanguageName(sourceLang))
	sb.WriteString("SOURCE:\n<<<\n" + source + "\n>>>\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "\nCANDIDATE %d [%s]:\n<<<\n%s\n>>>\n", i+1, r.ServiceName, r.TranslatedText)
		names = append(names, r.ServiceName)
	}
	names = append(names, CompositeService)

	fmt.Fprintf(&sb, `
Pick the most accurate and fluent candidate, or write a better one by
combining them (selected_service "%s").
A candidate that changes any LaTeX command, environment, math, label or
citation key is wrong however good its prose is.

Answer with one JSON object and nothing else:
{"selected_service": "%s", "final_text": "...", "reasoning": "..."}
`, CompositeService, strings.Join(names, "|"))

	return sb.String()
}

// parseArbiterResponse decodes the model's verdict. Models wrap JSON in code
// fences even when asked for a bare object.
func parseArbiterResponse(response string) (*EvaluationResult, error) {
	var v verdict
	if err := json.Unmarshal([]byte(postprocess.Clean(response)), &v); err != nil {
		return nil, fmt.Errorf("failed to parse arbiter response as JSON: %w", err)
	}
	return &EvaluationResult{
		SelectedService: v.SelectedService,
		CompositeText:   v.FinalText,
		IsComposite:     v.SelectedService == CompositeService,
		Reasoning:       v.Reasoning,
	}, nil
}

// resolve ties a verdict to the candidates: a named service supplies its own
// text, and a verdict naming nothing known is rejected.
func resolve(res *EvaluationResult, results []translator.ServiceResult) (*EvaluationResult, error) {
	if res.IsComposite {
		if strings.TrimSpace(res.CompositeText) == "" {
			return nil, errors.New("arbiter composed an empty translation")
		}
		return res, nil
	}
	for _, r := range results {
		if r.ServiceName == res.SelectedService {
			res.CompositeText = r.TranslatedText
			return res, nil
		}
	}
	return nil, fmt.Errorf("arbiter selected unknown service %q", res.SelectedService)
}
