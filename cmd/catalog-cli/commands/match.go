package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(matchCmd)
}

var matchCmd = &cobra.Command{
	Use:   "match <title>",
	Short: "Shows how every search candidate for a title was judged.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ranked := client.Explain(cmd.Context(), titleArg(args))
		if len(ranked) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no candidates")
			return nil
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"", "Id", "Name", "Type", "Score", "Similarity", "Excluded"})
		for _, r := range ranked {
			accepted := ""
			if r.Accepted {
				accepted = "*"
			}
			t.AppendRow(table.Row{
				accepted,
				r.Candidate.ID,
				r.Candidate.Name,
				r.Candidate.Type,
				fmt.Sprintf("%.2f", r.Score),
				fmt.Sprintf("%.2f", r.Similarity),
				r.Excluded,
			})
		}
		t.Render()
		return nil
	},
}
