// Package cmdutil provides shared utilities for safedrive commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/safedrive/safedrive-engine/internal/cli/credentials"
	"github.com/safedrive/safedrive-engine/internal/cli/output"
	"github.com/safedrive/safedrive-engine/internal/cli/prompt"
	"github.com/safedrive/safedrive-engine/pkg/config"
	"github.com/safedrive/safedrive-engine/pkg/keys"
	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/safedrive/safedrive-engine/pkg/remote/s3"
	"github.com/safedrive/safedrive-engine/pkg/session"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigPath string
	Output     string
	NoColor    bool
	Verbose    bool
}

// GetOutputFormat returns the output format string.
func GetOutputFormat() string {
	return Flags.Output
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// LoadConfig loads the engine configuration from --config (or the default
// location), requiring that it already exist.
func LoadConfig() (*config.Config, error) {
	return config.MustLoad(Flags.ConfigPath)
}

// OpenRemote builds the concrete remote.Store a Config names, dispatching
// on Remote.Type. Only "s3" ships today.
func OpenRemote(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.Remote.Type {
	case "s3":
		if cfg.Remote.S3 == nil {
			return nil, fmt.Errorf("remote.s3 is required when remote.type is \"s3\"")
		}
		return s3.NewFromConfig(ctx, s3.Config{
			Bucket:   cfg.Remote.S3.Bucket,
			Region:   cfg.Remote.S3.Region,
			Endpoint: cfg.Remote.S3.Endpoint,
			KeyPrefix: cfg.Remote.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported remote type: %q", cfg.Remote.Type)
	}
}

// OpenCredentials opens the credential store under the account directory.
func OpenCredentials(cfg *config.Config) (*credentials.Store, error) {
	return credentials.NewStore(cfg.Account.Dir)
}

// RequireToken loads the saved remote token, surfacing credentials.ErrNotLoggedIn
// with its 'safedrive init' hint intact.
func RequireToken(cfg *config.Config) (remote.Token, error) {
	store, err := OpenCredentials(cfg)
	if err != nil {
		return "", err
	}
	return store.Token()
}

// resolveSecret resolves a secret (account password or recovery phrase)
// through the SAFEDRIVE_PASSWORD contract: the environment variable
// directly, then the configured askpass helper, then an interactive
// prompt labeled for the caller's purpose. SAFEDRIVE_PASSWORD is
// deliberately never routed through the config loader.
func resolveSecret(promptLabel string) (string, error) {
	if secret := os.Getenv("SAFEDRIVE_PASSWORD"); secret != "" {
		return secret, nil
	}
	if helper := os.Getenv("SAFEDRIVE_ASKPASS"); helper != "" {
		secret, err := runAskpass(helper)
		if err == nil && secret != "" {
			return secret, nil
		}
	}
	return prompt.Password(promptLabel)
}

// AccountPassword resolves the remote account's authentication password,
// used by register_client/list_clients. Distinct from RecoveryPhrase: one
// authenticates to the remote store, the other unwraps local key material.
func AccountPassword() (string, error) {
	return resolveSecret("Account password")
}

// RecoveryPhrase resolves the BIP-39 recovery phrase needed to unwrap the
// local keyset.
func RecoveryPhrase() (string, error) {
	return resolveSecret("Recovery phrase")
}

// runAskpass invokes an external askpass helper binary and returns its
// trimmed stdout.
func runAskpass(helper string) (string, error) {
	cmd := exec.Command(helper)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// LoadKeys reads and unwraps the account's keyset file under cfg.Account.Dir,
// prompting for the recovery phrase via RecoveryPhrase.
func LoadKeys(cfg *config.Config) (session.Keys, error) {
	wks, err := keys.ReadFile(cfg.Account.Dir)
	if err != nil {
		return session.Keys{}, err
	}

	phrase, err := RecoveryPhrase()
	if err != nil {
		return session.Keys{}, err
	}

	ks, err := wks.Unwrap(phrase)
	if err != nil {
		return session.Keys{}, err
	}

	return session.Keys{Main: ks.Main, HMAC: ks.HMAC, Tweak: ks.Tweak}, nil
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses
// tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
}

// PrintSuccessWithInfo prints a success message followed by additional info
// lines. The info lines are only printed in table format.
func PrintSuccessWithInfo(msg string, infoLines ...string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
	for _, line := range infoLines {
		fmt.Println(line)
	}
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is true)
// and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s '%s' deleted successfully", resourceType, name))
	return nil
}

// BoolToYesNo renders a bool as "yes"/"no" for table display.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// HandleAbort checks if err is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns the original
// error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
