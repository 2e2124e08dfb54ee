/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/texsplit/internal/chunker"
	"github.com/valpere/texsplit/internal/latex"
)

var (
	mergeTemplate string
	mergeChunks   string
	mergeOutput   string

	mergeTranslated string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Reassemble a document from a template and chunks",
	Long: `Put translated chunks back into a template produced by "texsplit split".
The chunks file is either the JSON written by split, edited in place, or a
plain JSON array of strings. With --translated the chunks come from a separate
array which must hold as many chunks as the split produced.

Example:
  texsplit merge -t template.tex -j chunks.json -o paper.de.tex
  texsplit merge -t template.tex -j chunks.json -r chunks.de.json -o paper.de.tex`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tmplText, err := os.ReadFile(mergeTemplate)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		raw, err := os.ReadFile(mergeChunks)
		if err != nil {
			return fmt.Errorf("failed to read chunks: %w", err)
		}

		doc, err := readChunks(raw)
		if err != nil {
			return err
		}
		tmpl, err := latex.NewTemplate(string(tmplText))
		if err != nil {
			return err
		}
		// Keep the markers as written in the source when split recorded them.
		if doc.Template.Begin != "" && doc.Template.End != "" {
			tmpl.Begin, tmpl.End = doc.Template.Begin, doc.Template.End
		}
		doc.Template = tmpl

		translated := doc.Chunks
		if mergeTranslated != "" {
			raw, err := os.ReadFile(mergeTranslated)
			if err != nil {
				return fmt.Errorf("failed to read translated chunks: %w", err)
			}
			tr, err := readChunks(raw)
			if err != nil {
				return err
			}
			translated = tr.Chunks
		}

		out, err := doc.Reassemble(translated)
		if err != nil {
			return err
		}
		if err := writeFile(mergeOutput, []byte(out)); err != nil {
			return err
		}
		fmt.Printf("Merged %d chunks into %s\n", len(translated), mergeOutput)
		return nil
	},
}

func readChunks(raw []byte) (*chunker.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var chunks []string
		if err := json.Unmarshal(raw, &chunks); err != nil {
			return nil, fmt.Errorf("failed to decode chunks: %w", err)
		}
		return &chunker.Document{Chunks: chunks}, nil
	}

	var doc chunker.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}
	return &doc, nil
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().StringVarP(&mergeTemplate, "template", "t", "", "Template file written by split (required)")
	mergeCmd.Flags().StringVarP(&mergeChunks, "chunks", "j", "", "Chunks JSON file (required)")
	mergeCmd.Flags().StringVarP(&mergeTranslated, "translated", "r", "", "JSON array of translated chunks replacing those in --chunks")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "Output LaTeX file (required)")

	mergeCmd.MarkFlagRequired("template")
	mergeCmd.MarkFlagRequired("chunks")
	mergeCmd.MarkFlagRequired("output")
}
