package main

import (
	"fmt"
	"os"
	"path/filepath"

	"NexaVoice/internal/feedback"
	"NexaVoice/pkg/kvstore"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type app struct {
	dbPath     string
	remoteURL  string
	jsonOutput bool
	verbose    bool

	log      *logrus.Logger
	store    *kvstore.SQLiteStore
	feedback *feedback.Service
}

func defaultDBPath() string {
	if v := os.Getenv("VOICE_SQLITE_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "voice.db"
	}
	return filepath.Join(home, ".nexavoice", "voice.db")
}

func (a *app) open() error {
	a.log = logrus.New()
	a.log.SetOutput(os.Stderr)
	a.log.SetFormatter(&formatter.Formatter{
		TimestampFormat: "15:04:05",
		HideKeys:        false,
	})
	a.log.SetLevel(logrus.WarnLevel)
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}

	store, err := kvstore.OpenSQLite(a.dbPath)
	if err != nil {
		return err
	}
	a.store = store

	var opts []feedback.Option
	if a.remoteURL != "" {
		opts = append(opts, feedback.WithRemote(feedback.NewClient(a.remoteURL)))
	}
	a.feedback = feedback.New(store, a.log, opts...)
	return nil
}

func (a *app) close() error {
	if a.feedback != nil {
		a.feedback.Wait()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (a *app) print(v interface{}, text func()) error {
	if !a.jsonOutput {
		text()
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
