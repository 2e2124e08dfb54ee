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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/texsplit/internal/store"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the terminology glossary",
	Long: `Add, list, import and delete terminology glossary entries.

Glossary entries for the language pair of a run are passed to LLM services
with every chunk, so a source term is translated the same way throughout
the document. Use them for technical vocabulary and names.`,
}

var (
	glossarySource string
	glossaryTarget string
)

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary entries, optionally for one language pair",
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		entries, err := db.ListGlossaryTerms(cmd.Context(), glossarySource, glossaryTarget)
		if err != nil {
			return fmt.Errorf("failed to list glossary: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("Glossary is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLANGS\tSOURCE TERM\tTARGET TERM")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s→%s\t%s\t%s\n", e.ID, e.SourceLang, e.TargetLang, e.SourceTerm, e.TargetTerm)
		}
		return w.Flush()
	}),
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add <source-term> <target-term>",
	Short: "Add or update a glossary entry",
	Example: `  texsplit glossary add "eigenvalue" "Eigenwert" --source en --target de`,
	Args:    cobra.ExactArgs(2),
	PreRunE: requirePair,
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		if err := db.AddGlossaryTerm(cmd.Context(), glossarySource, glossaryTarget, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to add glossary entry: %w", err)
		}
		fmt.Printf("Added: [%s→%s] %q → %q\n", glossarySource, glossaryTarget, args[0], args[1])
		return nil
	}),
}

var glossaryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import glossary entries from a TSV or JSON file",
	Long: `Import terms for one language pair. The file is either a JSON object
mapping source terms to target terms, or tab-separated lines
"source<TAB>target". Blank lines and lines starting with # are skipped.`,
	Example: `  texsplit glossary import terms.tsv --source en --target uk`,
	Args:    cobra.ExactArgs(1),
	PreRunE: requirePair,
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		terms, err := parseGlossary(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		for _, t := range terms {
			if err := db.AddGlossaryTerm(cmd.Context(), glossarySource, glossaryTarget, t[0], t[1]); err != nil {
				return fmt.Errorf("failed to add %q: %w", t[0], err)
			}
		}
		fmt.Printf("Imported %d terms [%s→%s]\n", len(terms), glossarySource, glossaryTarget)
		return nil
	}),
}

var glossaryDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   `Delete a glossary entry by ID (shown in "texsplit glossary list")`,
	Example: `  texsplit glossary delete gl_3f1c2a9e-5b7d-4c1e-9a0f-2d8e6b4c7a15`,
	Args:    cobra.ExactArgs(1),
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		if err := db.DeleteGlossaryTerm(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete glossary entry: %w", err)
		}
		fmt.Printf("Deleted glossary entry: %s\n", args[0])
		return nil
	}),
}

func requirePair(cmd *cobra.Command, args []string) error {
	if glossarySource == "" || glossaryTarget == "" {
		return fmt.Errorf("--source and --target language flags are required")
	}
	return nil
}

// parseGlossary reads a JSON object or TSV lines into source/target pairs,
// in file order for TSV.
func parseGlossary(raw []byte) ([][2]string, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var m map[string]string
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("invalid JSON glossary: %w", err)
		}
		terms := make([][2]string, 0, len(m))
		for src, dst := range m {
			terms = append(terms, [2]string{src, dst})
		}
		return terms, nil
	}

	var terms [][2]string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		src, dst, ok := strings.Cut(line, "\t")
		src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
		if !ok || src == "" || dst == "" {
			return nil, fmt.Errorf("line %d: want \"source<TAB>target\"", n)
		}
		terms = append(terms, [2]string{src, dst})
	}
	return terms, sc.Err()
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryCmd.PersistentFlags().String("db", "", "Database path (default from config)")
	glossaryCmd.PersistentFlags().StringVarP(&glossarySource, "source", "s", "", "Source language code (e.g. en)")
	glossaryCmd.PersistentFlags().StringVarP(&glossaryTarget, "target", "t", "", "Target language code (e.g. uk)")

	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryAddCmd)
	glossaryCmd.AddCommand(glossaryImportCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
}
