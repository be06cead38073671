package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spiffcs/pulse/config"
	"github.com/spiffcs/pulse/internal/state"
)

// NewCmdState creates the state command with subcommands.
func NewCmdState(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Manage the activity snapshot",
	}

	cmd.AddCommand(newCmdStateShow(opts))
	cmd.AddCommand(newCmdStateReset(opts))

	return cmd
}

// newCmdStateShow creates the state show subcommand.
func newCmdStateShow(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored activity snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStateShow(opts)
		},
	}
	cmd.Flags().StringVar(&opts.StatePath, "state", "", "Snapshot file location")
	return cmd
}

// newCmdStateReset creates the state reset subcommand.
func newCmdStateReset(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored snapshot so the next run starts fresh",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStateReset(opts)
		},
	}
	cmd.Flags().StringVar(&opts.StatePath, "state", "", "Snapshot file location")
	return cmd
}

// openStore resolves the snapshot path like a digest run does.
func openStore(opts *Options) (*state.Store, string, error) {
	path := opts.StatePath
	if path == "" {
		if cfg, err := config.Load(); err == nil {
			path = cfg.StatePath
		}
	}
	if path == "" {
		var err error
		path, err = state.DefaultPath()
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve state path: %w", err)
		}
	}
	return state.NewStore(path), path, nil
}

func runStateShow(opts *Options) error {
	store, path, err := openStore(opts)
	if err != nil {
		return err
	}

	snap := store.Load()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Snapshot: %s\n", path)
	fmt.Println(string(data))
	return nil
}

func runStateReset(opts *Options) error {
	store, path, err := openStore(opts)
	if err != nil {
		return err
	}

	if err := store.Reset(); err != nil {
		return fmt.Errorf("failed to reset snapshot: %w", err)
	}

	fmt.Printf("Snapshot reset: %s\n", path)
	return nil
}
