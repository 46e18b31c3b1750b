package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fsnap/internal/app"
	"fsnap/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file from its default (or overridden) location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Store", "Diff").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptPassphrase reads a passphrase without echo. With confirm it asks
// twice and requires both entries to match.
func promptPassphrase(confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if len(first) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}

	if confirm {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		second, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		if string(first) != string(second) {
			return "", fmt.Errorf("passphrases do not match")
		}
	}

	return string(first), nil
}

// parseTags turns repeated key=value flags into a tag map.
func parseTags(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid tag %q: want key=value", entry)
		}
		tags[parts[0]] = parts[1]
	}
	return tags, nil
}

var rootCmd = &cobra.Command{
	Use:   "fsnap",
	Short: "Filesystem snapshot and reconciliation tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Store:    %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Archive:  %s\n", cfg.Archive.Type)
		if len(cfg.Specs) == 0 {
			fmt.Println("\nNo specs configured.")
			return nil
		}
		fmt.Println("\nSpecs:")
		for name, spec := range cfg.Specs {
			fmt.Printf("  %-12s root=%s digests=%v categories=%d\n",
				name, spec.RootDir, spec.Digests, len(spec.Categories))
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair used to encrypt archived store snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := promptPassphrase(true)
		if err != nil {
			return err
		}

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Key pair generated.")
		return nil
	},
}

// store command
var storeCmd = &cobra.Command{
	Use:   "store SPEC",
	Short: "Scan a spec's tree and store a new snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawTags, _ := cmd.Flags().GetStringArray("tag")
		tags, err := parseTags(rawTags)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "Store")
		if err != nil {
			return err
		}
		defer a.Close()

		start := time.Now()
		id, err := a.StoreSnapshot(cmd.Context(), args[0], tags)
		if err != nil {
			return fmt.Errorf("storing snapshot: %w", err)
		}

		fmt.Printf("Stored import %s (%s)\n", id.String(), time.Since(start).Truncate(time.Millisecond))
		return nil
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff SPEC IMPORT_ID",
	Short: "Reconcile an import against the latest snapshot of its spec",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Diff")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Diff(args[0], args[1])
		if err != nil {
			return err
		}

		return result.WriteJSON(os.Stdout)
	},
}

// imports command
var importsCmd = &cobra.Command{
	Use:   "imports SPEC",
	Short: "List stored imports of a spec, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "ListImports")
		if err != nil {
			return err
		}
		defer a.Close()

		imports, err := a.ListImports(args[0], limit)
		if err != nil {
			return err
		}

		if len(imports) == 0 {
			fmt.Println("No imports stored.")
			return nil
		}

		for _, imp := range imports {
			fmt.Printf("%s  %s  %6d record(s)\n",
				imp.ID.String(),
				imp.Timestamp.UTC().Format("2006-01-02 15:04:05"),
				imp.RecordCount,
			)
		}
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the store archive",
}

var archiveInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Verify the configured archive backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ValidateArchive")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateArchive(); err != nil {
			return fmt.Errorf("archive validation failed: %w", err)
		}

		fmt.Println("Archive is reachable.")
		return nil
	},
}

var archivePullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local store with the archived copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var passphrase string
		if cfg.Encryption.Type != "none" {
			passphrase, err = promptPassphrase(false)
			if err != nil {
				return err
			}
		}

		if err := app.PullStore(cmd.Context(), cfg, passphrase, force); err != nil {
			return fmt.Errorf("pulling store: %w", err)
		}

		fmt.Println("Store pulled from archive.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	archiveCmd.AddCommand(archiveInitCmd)
	archiveCmd.AddCommand(archivePullCmd)
	archivePullCmd.Flags().Bool("force", false, "Overwrite a local store that is not behind the archive")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(storeCmd)
	storeCmd.Flags().StringArray("tag", nil, "Tag the import (key=value, repeatable)")
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(importsCmd)
	importsCmd.Flags().IntP("limit", "n", 50, "Maximum number of imports to show")
	rootCmd.AddCommand(archiveCmd)
}
