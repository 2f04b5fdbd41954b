package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/safedrive/safedrive-engine/cmd/safedrive/cmdutil"
)

var addFlags struct {
	name      string
	encrypted bool
}

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a local folder for sync",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}

		token, err := cmdutil.RequireToken(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, err := cmdutil.OpenRemote(ctx, cfg)
		if err != nil {
			return err
		}

		name := addFlags.name
		if name == "" {
			name = filepath.Base(path)
		}

		id, err := store.CreateFolder(ctx, token, path, name, addFlags.encrypted)
		if err != nil {
			return fmt.Errorf("failed to register folder: %w", err)
		}

		cmdutil.PrintSuccessWithInfo(
			fmt.Sprintf("Folder '%s' registered", name),
			fmt.Sprintf("  ID:   %s", id),
			fmt.Sprintf("  Path: %s", path),
		)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addFlags.name, "name", "", "Folder name (default: the directory's base name)")
	addCmd.Flags().BoolVar(&addFlags.encrypted, "encrypted", true, "Store this folder's blocks and sessions end-to-end encrypted")
}
