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
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/texsplit/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect document translation runs",
	Long: `List translation runs and their checkpointed progress. A failed or
interrupted run can be continued with "texsplit translate --resume <id>".`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List translation runs, newest first",
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		runs, err := db.ListRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tDONE\tLANGS\tINPUT\tUPDATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s→%s\t%s\t%s\n",
				r.ID, r.Status, r.Done, r.ChunkCount, r.SourceLang, r.TargetLang,
				r.InputFile, r.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	}),
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one translation run",
	Args:  cobra.ExactArgs(1),
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		r, err := db.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ID:         %s\n", r.ID)
		fmt.Printf("Status:     %s\n", r.Status)
		fmt.Printf("Input:      %s\n", r.InputFile)
		fmt.Printf("Output:     %s\n", r.OutputFile)
		fmt.Printf("Languages:  %s → %s\n", r.SourceLang, r.TargetLang)
		fmt.Printf("Chunks:     %d/%d (size %d)\n", r.Done, r.ChunkCount, r.ChunkSize)
		fmt.Printf("Started:    %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:    %s\n", r.UpdatedAt.Format("2006-01-02 15:04:05"))
		if r.Error != "" {
			fmt.Printf("Error:      %s\n", r.Error)
		}
		return nil
	}),
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run and its checkpointed chunks",
	Args:  cobra.ExactArgs(1),
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		if err := db.DeleteRun(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted run: %s\n", args[0])
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.PersistentFlags().String("db", "", "Database path (default from config)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}
