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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/texsplit/internal/chunker"
	"github.com/valpere/texsplit/internal/latex"
)

var (
	splitInput    string
	splitTemplate string
	splitChunks   string
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a LaTeX document into a template and chunks",
	Long: `Split the body of a LaTeX document at safe boundaries. The preamble and
everything after \end{document} go to the template file with the body replaced
by a placeholder; the chunks go to a JSON file. Joining the chunks reproduces
the body exactly.

Example:
  texsplit split -i paper.tex -o template.tex -j chunks.json -n 3000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd, "chunk-size", "strip-comments", "merge-lines")
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(splitInput)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text := string(raw)
		if c.StripComments {
			text = latex.StripComments(text)
		}
		if c.MergeLines {
			text = latex.MergeSoftLines(text)
		}

		doc, err := chunker.Split(text, c.ChunkSize)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode chunks: %w", err)
		}
		if err := writeFile(splitTemplate, []byte(doc.Template.Text)); err != nil {
			return err
		}
		if err := writeFile(splitChunks, data); err != nil {
			return err
		}

		fmt.Printf("Split %s into %d chunks\n", splitInput, len(doc.Chunks))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().StringVarP(&splitInput, "input", "i", "", "Input LaTeX file (required)")
	splitCmd.Flags().StringVarP(&splitTemplate, "output", "o", "", "Template file to write (required)")
	splitCmd.Flags().StringVarP(&splitChunks, "chunks", "j", "", "Chunks JSON file to write (required)")
	splitCmd.Flags().IntP("chunk-size", "n", chunker.DefaultMaxChars, "Chunk length in characters at which a chunk is closed")
	splitCmd.Flags().Bool("strip-comments", false, "Remove % comments before splitting")
	splitCmd.Flags().Bool("merge-lines", false, "Join soft-wrapped prose lines before splitting")

	splitCmd.MarkFlagRequired("input")
	splitCmd.MarkFlagRequired("output")
	splitCmd.MarkFlagRequired("chunks")
}
