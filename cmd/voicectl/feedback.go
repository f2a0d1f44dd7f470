package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"NexaVoice/internal/entity"
	"NexaVoice/internal/feedback"

	"github.com/spf13/cobra"
)

func newFeedbackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Inspect, sync and export voice command feedback",
	}

	cmd.AddCommand(newFeedbackSyncCmd(a))
	cmd.AddCommand(newFeedbackQueueCmd(a))
	cmd.AddCommand(newFeedbackListCmd(a))
	cmd.AddCommand(newFeedbackExportCmd(a))
	return cmd
}

func newFeedbackSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Deliver queued offline feedback to the remote API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.remoteURL == "" {
				return fmt.Errorf("--remote or VOICE_FEEDBACK_REMOTE_URL is required")
			}

			res, err := a.feedback.SyncQueuedFeedback(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(res, func() {
				fmt.Printf("Synced %d, failed %d\n", res.Synced, res.Failed)
			})
		},
	}
}

func newFeedbackQueueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show feedback waiting for a sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := a.feedback.OfflineQueue(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(queue, func() {
				fmt.Printf("Queued feedback (%d):\n", len(queue))
				for _, q := range queue {
					fmt.Printf("  %s  %-30q rating=%d session=%s\n",
						formatMillis(q.Timestamp), q.Command, q.Rating, q.SessionID)
				}
			})
		},
	}
}

func newFeedbackListCmd(a *app) *cobra.Command {
	var (
		feedbackType string
		rating       int
		resolved     string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List locally stored feedback, newest first",
		Example: `  voicectl feedback list
  voicectl feedback list --type error --resolved=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := feedback.Filter{
				Type:   entity.FeedbackType(feedbackType),
				Rating: rating,
			}
			if resolved != "" {
				v, err := strconv.ParseBool(resolved)
				if err != nil {
					return fmt.Errorf("--resolved must be true or false")
				}
				filter.Resolved = &v
			}

			records, err := a.feedback.Feedback(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.print(records, func() {
				fmt.Printf("Feedback (%d):\n", len(records))
				for _, r := range records {
					status := "open"
					if r.Resolved {
						status = "resolved"
					}
					fmt.Printf("  %s  %s  %-8s %-30q rating=%d %s\n",
						r.ID, formatMillis(r.Timestamp), r.FeedbackType, r.Command, r.Rating, status)
				}
			})
		},
	}

	cmd.Flags().StringVar(&feedbackType, "type", "", "Filter by feedback type")
	cmd.Flags().IntVar(&rating, "rating", 0, "Filter by rating")
	cmd.Flags().StringVar(&resolved, "resolved", "", "Filter by resolved state (true|false)")
	return cmd
}

func newFeedbackExportCmd(a *app) *cobra.Command {
	var (
		format string
		from   string
		to     string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export feedback from the remote API",
		Example: `  voicectl feedback export --format csv --from 2024-01-01 --to 2024-01-31 --out jan.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("--format must be csv or json")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			blob, err := a.feedback.ExportFeedback(ctx, format, entity.ExportFilters{
				StartDate: from,
				EndDate:   to,
			})
			if err != nil {
				return err
			}

			if out == "" {
				_, err = os.Stdout.Write(blob.Data)
				return err
			}
			if err := os.WriteFile(out, blob.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", len(blob.Data), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format (csv|json)")
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
