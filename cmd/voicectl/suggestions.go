package main

import (
	"fmt"

	"NexaVoice/internal/entity"
	"NexaVoice/internal/feedback"

	"github.com/spf13/cobra"
)

func newSuggestionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "List and vote on command suggestions",
	}

	cmd.AddCommand(newSuggestionsListCmd(a))
	cmd.AddCommand(newSuggestionsVoteCmd(a))
	return cmd
}

func newSuggestionsListCmd(a *app) *cobra.Command {
	var (
		category string
		status   string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List suggestions by votes then priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.feedback.Suggestions(cmd.Context(), feedback.SuggestionFilter{
				Category: category,
				Status:   entity.SuggestionStatus(status),
			})
			if err != nil {
				return err
			}
			return a.print(items, func() {
				fmt.Printf("Suggestions (%d):\n", len(items))
				for _, s := range items {
					fmt.Printf("  %s  %+3d  p%d  %-10s %-12s %q -> %s\n",
						s.ID, s.Votes, s.Priority, s.Status, s.Category, s.SuggestedCommand, s.ExpectedAction)
				}
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}

func newSuggestionsVoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "vote <id> up|down",
		Short:     "Vote a suggestion up or down by one",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var vote int
			switch args[1] {
			case "up":
				vote = 1
			case "down":
				vote = -1
			default:
				return fmt.Errorf("vote must be up or down, got %q", args[1])
			}

			s, err := a.feedback.VoteOnSuggestion(cmd.Context(), args[0], vote)
			if err != nil {
				return err
			}
			return a.print(s, func() {
				fmt.Printf("%s now has %d votes\n", s.ID, s.Votes)
			})
		},
	}
}
