// Package validator checks translation results: that a translated LaTeX chunk
// keeps the structure of its source, and that its prose is in the expected
// target language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/texsplit/internal/detector"
	"github.com/valpere/texsplit/internal/latex"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator checks that a translation result is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector.
func New() *Validator {
	return &Validator{det: detector.New()}
}

// IsValid returns true when the prose of translatedText appears to be written
// in targetLang. Math, commands and comments are ignored, and only the base
// language of targetLang is compared ("zh-CN" matches "zh").
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. When the detected language differs
// from targetLang the returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	prose := latex.Prose(text)

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(prose)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(prose)
	if !ok {
		// Ambiguous language: nothing to check against.
		return true, nil
	}

	if !strings.EqualFold(detected, baseLanguage(targetLang)) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}

func baseLanguage(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return code[:i]
	}
	return code
}
