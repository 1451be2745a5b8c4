package cli

import (
	"fmt"
	"path/filepath"

	"github.com/alanmeadows/shipcheck/internal/config"
	"github.com/alanmeadows/shipcheck/internal/history"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded prerequisite checks",
	Long: `Display previous check runs recorded in the repository's history
directory, newest first.`,
	Example: `  shipcheck history
  shipcheck history -n 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newHistoryStore(appConfig)
		runs, err := store.List(historyLimit)
		if err != nil {
			return fmt.Errorf("listing history: %w", err)
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recorded checks.")
			return nil
		}

		headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		cellStyle := lipgloss.NewStyle().Padding(0, 1)
		failStyle := cellStyle.Foreground(lipgloss.Color("1"))

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			result := "passed"
			if !r.Passed {
				result = "failed"
			}
			rows = append(rows, []string{
				r.Time.Local().Format("2006-01-02 15:04:05"),
				r.Input,
				r.CurrentVersion,
				r.NewVersion,
				result,
				r.FailedStep,
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("TIME", "INPUT", "CURRENT", "NEW", "RESULT", "FAILED STEP").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 4 && row >= 0 && row < len(runs) && !runs[row].Passed {
					return failStyle
				}
				return cellStyle
			})

		fmt.Fprintln(cmd.OutOrStdout(), t)
		return nil
	},
}

// newHistoryStore resolves the history directory against the repository
// root when it is relative.
func newHistoryStore(cfg *config.Config) *history.Store {
	dir := cfg.History.Dir
	if !filepath.IsAbs(dir) {
		if root := config.RepoRoot(); root != "" {
			dir = filepath.Join(root, dir)
		}
	}
	return history.NewStore(dir, cfg.History.ParseLockTimeout())
}
