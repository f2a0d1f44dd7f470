package main

import (
	"fmt"
	"strings"

	"NexaVoice/pkg/nlp"

	"github.com/spf13/cobra"
)

type resolution struct {
	Transcript  string                  `json:"transcript"`
	Category    nlp.Category            `json:"category"`
	Kind        string                  `json:"kind"`
	Action      nlp.Action              `json:"action"`
	Suggestions []nlp.CommandSuggestion `json:"suggestions,omitempty"`
}

func newResolveCmd(a *app) *cobra.Command {
	var confidence float64

	cmd := &cobra.Command{
		Use:   "resolve <transcript>",
		Short: "Show how a transcript resolves against the command grammar",
		Example: `  voicectl resolve "go to dashboard"
  voicectl resolve "serch for invoices" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript := strings.Join(args, " ")
			processor := nlp.NewProcessor()

			action := processor.Process(transcript, confidence, nil)
			res := resolution{
				Transcript: transcript,
				Category:   action.Type,
				Action:     action.Action,
			}
			if action.Action != nil {
				res.Kind = action.Action.Kind()
			}
			if action.IsUnknown() {
				res.Suggestions = processor.Suggest(transcript, 5)
			}

			return a.print(res, func() {
				fmt.Printf("%q -> %s", transcript, res.Category)
				if res.Kind != "" {
					fmt.Printf(" (%s)", res.Kind)
				}
				fmt.Println()
				for _, s := range res.Suggestions {
					fmt.Printf("  did you mean %q? (%.2f)\n", s.Suggested, s.Confidence)
				}
			})
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", 1, "Recognition confidence to resolve with")
	return cmd
}
