package commands

import (
	"catalogmatch/internal/storefront"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	dataCmd.Flags().IntVar(&dataID, "id", 0, "Look up an entry by its storefront id instead of a title.")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(cacheStatsCmd)
}

var findCmd = &cobra.Command{
	Use:   "find <title>",
	Short: "Resolves a title to a storefront entry.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FindApp(cmd.Context(), titleArg(args))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t(score %.2f)\n", app.ID, app.Name, app.Score)
		return nil
	},
}

var dataID int

var dataCmd = &cobra.Command{
	Use:   "data [--id <id>] [title]",
	Short: "Prints the reviews, tags and metadata of an entry as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dataID == 0 && len(args) == 0 {
			return errors.New("either a title or --id must be given")
		}

		var res storefront.Result
		if dataID != 0 {
			res = client.CompleteDataByID(cmd.Context(), dataID)
		} else {
			res = client.CompleteDataByTitle(cmd.Context(), titleArg(args))
		}
		err := printJSON(cmd.OutOrStdout(), res)
		if err != nil {
			return err
		}
		if !res.Success {
			return errors.New(res.Error)
		}
		return nil
	},
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews <title>",
	Short: "Prints the overall and recent review summaries of a title.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviews, ok := client.ReviewsOnly(cmd.Context(), titleArg(args))
		if !ok {
			return fmt.Errorf("no reviews found for %q", titleArg(args))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "overall: %s\n", orNone(reviews.Overall))
		fmt.Fprintf(out, "recent:  %s\n", orNone(reviews.Recent))
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags <title>",
	Short: "Prints the popular tags of a title in display order.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, ok := client.TagsOnly(cmd.Context(), titleArg(args))
		if !ok {
			return fmt.Errorf("no tags found for %q", titleArg(args))
		}
		if len(tags) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(none)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tags, ", "))
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "cache-stats [title...]",
	Short: "Resolves each title given (one per argument) and prints the cache size afterwards.",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, title := range args {
			res := client.CompleteDataByTitle(cmd.Context(), title)
			if !res.Success {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", title, res.Error)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "size: %d\n", client.CacheStats().Size)
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
