// cli.go - Cobra command tree

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// ValidSources are the accepted session start sources: "manual" for a
// user-initiated start, "tag" for a deep-link/NFC dispatch.
var ValidSources = []string{"manual", "tag"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "drift - guided focus sessions over a generative noise bed",
		Long:  "Runs timed entry/immersion/return focus sessions over a continuously generated brown noise bed, with a durable offline-first session history.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config.yaml", "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewStartCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))

	return cmd
}

// NewStartCommand runs a session interactively until it completes or is
// aborted.
func NewStartCommand(opts *RootOptions) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidSource(source) {
				return fmt.Errorf("invalid source %q: must be one of %v", source, ValidSources)
			}
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			log := newLogger(opts.Verbose)

			store, err := OpenHistoryStore(cfg.Store.Path, log)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := NewAudioEngine(cfg.AudioParams(), log)
			defer engine.Close()
			controller := NewSessionController(engine, store, log)

			ui := NewTerminalUI(controller, engine)
			if err := ui.Run(cfg.Session, source); err != nil {
				return err
			}

			// Best-effort drain of the sync queue after the session; a
			// failure here just leaves the records queued.
			if cfg.Sync.BaseURL != "" {
				client := NewSyncClient(cfg.Sync.BaseURL, log)
				if _, _, err := store.SyncPending(cmd.Context(), client); err != nil {
					log.Warn().Err(err).Msg("post-session sync failed")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "manual", "session start source (manual|tag)")
	return cmd
}

// NewHistoryCommand prints the local session log.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			log := newLogger(opts.Verbose)

			store, err := OpenHistoryStore(cfg.Store.Path, log)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListAll()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no sessions recorded")
				return nil
			}
			for _, rec := range records {
				outcome := "aborted"
				if rec.Completed {
					outcome = "completed"
				}
				fmt.Printf("%s  %s  %9s  %-9s  sync=%s",
					rec.ID[:8],
					rec.StartedAt.Local().Format("2006-01-02 15:04"),
					formatSeconds(rec.ElapsedSeconds),
					outcome,
					rec.SyncState)
				if rec.SyncState == SYNC_FAILED {
					fmt.Printf(" (%d attempts)", rec.RetryCount)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

// NewSyncCommand drains the sync queue against the configured backend.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push unsynced sessions to the remote backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			if cfg.Sync.BaseURL == "" {
				return fmt.Errorf("no sync base_url configured")
			}
			log := newLogger(opts.Verbose)

			store, err := OpenHistoryStore(cfg.Store.Path, log)
			if err != nil {
				return err
			}
			defer store.Close()

			client := NewSyncClient(cfg.Sync.BaseURL, log)
			synced, failed, err := store.SyncPending(context.Background(), client)
			if err != nil {
				return err
			}
			fmt.Printf("synced %d, failed %d\n", synced, failed)
			return nil
		},
	}
}

func isValidSource(source string) bool {
	for _, s := range ValidSources {
		if s == source {
			return true
		}
	}
	return false
}
