// Package detector identifies the natural language of text with lingua-go.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/texsplit/internal/latex"
)

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// DetectLaTeX returns the lower-case ISO 639-1 code ("de") of the prose in a
// LaTeX fragment, ignoring math, commands and comments. The result is ready
// to be used as a source language.
func (d *Detector) DetectLaTeX(text string) (string, bool) {
	code, ok := d.DetectISO(latex.Prose(text))
	return strings.ToLower(code), ok
}
