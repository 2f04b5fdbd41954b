package commands

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/safedrive/safedrive-engine/cmd/safedrive/cmdutil"
	"github.com/safedrive/safedrive-engine/internal/cli/credentials"
	"github.com/safedrive/safedrive-engine/pkg/config"
	"github.com/safedrive/safedrive-engine/pkg/keys"
)

var initFlags struct {
	email    string
	bucket   string
	region   string
	endpoint string
	force    bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new local account",
	Long: `init generates a fresh recovery phrase and key hierarchy, registers
this client with the remote store, and writes the local configuration
file. The recovery phrase is shown exactly once: write it down, SafeDrive
never stores it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cmdutil.Flags.ConfigPath
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if !initFlags.force {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("a configuration file already exists at %s (use --force to overwrite)", configPath)
			}
			if keys.FileExists(config.GetDefaultConfig().Account.Dir) {
				return fmt.Errorf("a keyset already exists under %s (use --force to overwrite)", config.GetDefaultConfig().Account.Dir)
			}
		}

		if initFlags.email == "" {
			return fmt.Errorf("--email is required")
		}
		if initFlags.bucket == "" {
			return fmt.Errorf("--bucket is required")
		}

		password, err := cmdutil.AccountPassword()
		if err != nil {
			return err
		}

		cfg := config.GetDefaultConfig()
		cfg.Account.ID = uuid.NewString()
		cfg.Remote.Type = "s3"
		cfg.Remote.S3 = &config.S3Config{
			Bucket:   initFlags.bucket,
			Region:   initFlags.region,
			Endpoint: initFlags.endpoint,
		}
		config.ApplyDefaults(cfg)

		ctx := context.Background()
		store, err := cmdutil.OpenRemote(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to reach remote store: %w", err)
		}

		phrase, wks, err := keys.NewKeyset()
		if err != nil {
			return fmt.Errorf("failed to generate keyset: %w", err)
		}

		token, err := store.RegisterClient(ctx, runtime.GOOS, "go", cfg.Account.ID, initFlags.email, password)
		if err != nil {
			return fmt.Errorf("failed to register client with remote store: %w", err)
		}

		// The remote store is authoritative for the wrapped keyset: the
		// first client to register an account wins, every subsequent client
		// adopts whatever account_key returns.
		adopted, err := store.AccountKey(ctx, token, wks.ToHexMap())
		if err != nil {
			return fmt.Errorf("failed to reconcile keyset with remote store: %w", err)
		}
		if adopted["master"] != wks.ToHexMap()["master"] {
			wks, err = keys.WrappedKeysetFromHexMap(adopted)
			if err != nil {
				return fmt.Errorf("failed to parse remote keyset: %w", err)
			}
		}

		if err := keys.WriteFile(cfg.Account.Dir, wks); err != nil {
			return fmt.Errorf("failed to persist keyset: %w", err)
		}

		credStore, err := credentials.NewStore(cfg.Account.Dir)
		if err != nil {
			return fmt.Errorf("failed to initialize credential store: %w", err)
		}
		if err := credStore.SetToken(token); err != nil {
			return fmt.Errorf("failed to persist remote token: %w", err)
		}

		if err := config.SaveConfig(cfg, configPath); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}

		cmdutil.PrintSuccess("Account initialized")
		fmt.Printf("\nRecovery phrase (write this down, it is never shown again):\n\n  %s\n\n", phrase)
		fmt.Printf("Account directory: %s\n", cfg.Account.Dir)
		fmt.Printf("Config file:       %s\n", configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initFlags.email, "email", "", "Account email")
	initCmd.Flags().StringVar(&initFlags.bucket, "bucket", "", "S3 bucket for the remote store")
	initCmd.Flags().StringVar(&initFlags.region, "region", "us-east-1", "S3 region")
	initCmd.Flags().StringVar(&initFlags.endpoint, "endpoint", "", "S3-compatible endpoint override")
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite an existing configuration file")
}
