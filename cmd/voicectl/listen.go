package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"NexaVoice/internal/analytics"
	"NexaVoice/internal/assistant"
	"NexaVoice/pkg/kvstore"
	"NexaVoice/pkg/nlp"
	"NexaVoice/pkg/speech"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newListenCmd(a *app) *cobra.Command {
	var (
		streamURL string
		path      string
		wakeWord  string
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run a terminal voice assistant over a speech-to-text stream",
		Long: `Connects to a streaming speech-to-text service. Final transcripts feed the
wake-word monitor while idle and answer the active session while listening.`,
		Example: `  voicectl listen --stream ws://localhost:9000/stt --wake-word "hey nexa"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if streamURL == "" {
				return fmt.Errorf("--stream or STT_STREAM_URL is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runListen(ctx, a, streamURL, path, wakeWord)
		},
	}

	cmd.Flags().StringVar(&streamURL, "stream", os.Getenv("STT_STREAM_URL"), "Websocket URL of the transcript stream")
	cmd.Flags().StringVar(&path, "path", "/dashboard", "Starting page path")
	cmd.Flags().StringVar(&wakeWord, "wake-word", "", "Override the wake word")
	return cmd
}

func runListen(ctx context.Context, a *app, streamURL, path, wakeWord string) error {
	settings := assistant.DefaultSettings()
	if wakeWord != "" {
		settings.WakeWord = wakeWord
	}

	bridge := speech.NewBridge(true)
	hub := assistant.NewHub()
	tracker := analytics.New(kvstore.WithPrefix(a.store, "cli:"), a.log)

	controller := assistant.New(assistant.Config{
		UserID:      "local",
		Settings:    settings,
		Permission:  assistant.PermissionGranted,
		CurrentPath: path,
	}, bridge, nlp.NewProcessor(), a.log,
		assistant.WithPublisher(hub),
		assistant.WithFeedback(a.feedback),
		assistant.WithAnalytics(tracker),
		assistant.WithSynthesizer(speech.NewClientSynthesizer()),
	)
	defer controller.Close(context.Background())

	events, unsubscribe := hub.Subscribe(64)
	defer unsubscribe()

	stream := speech.NewStreamClient(streamURL, a.log)

	fmt.Printf("Listening for %q on %s (Ctrl+C to quit)\n", settings.WakeWord, streamURL)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := stream.Run(gctx, func(t speech.Transcript) {
			if !t.Final || t.Text == "" {
				return
			}
			if bridge.Listening() {
				if err := bridge.Push(speech.RecognitionResult{Transcript: t.Text, Confidence: t.Confidence}); err != nil {
					a.log.WithField("error", err.Error()).Debug("Transcript arrived after the session closed")
				}
				return
			}
			controller.FeedWakeTranscript(t.Text, t.Confidence)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				printEvent(a, e)
			}
		}
	})

	return g.Wait()
}

func printEvent(a *app, e assistant.Event) {
	if a.jsonOutput {
		out, err := json.Marshal(e)
		if err == nil {
			fmt.Println(string(out))
		}
		return
	}

	switch data := e.Data.(type) {
	case assistant.Toast:
		fmt.Printf("[%s] %s\n", data.Level, data.Message)
	case assistant.Navigation:
		if data.Path != "" {
			fmt.Printf("-> %s %s\n", data.Action, data.Path)
		} else {
			fmt.Printf("-> %s\n", data.Action)
		}
	case speech.Audio:
		fmt.Printf("Nexa: %s\n", data.Text)
	case assistant.StateChange:
		if e.Type == assistant.EventState {
			fmt.Printf("   (%s)\n", data.Phase)
		}
	}
}
