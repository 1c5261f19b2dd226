package main

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wesm/zenhub-mirror/config"
	"github.com/wesm/zenhub-mirror/internal/mirror"
	"github.com/wesm/zenhub-mirror/internal/sync"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "zenhub-mirror",
		Short:         "Mirror ZenHub boards, epics, dependencies and issue data to local storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "zenhub-mirror.yaml", "path to configuration file (.yaml or .toml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newInitCmd(opts),
		newCheckCmd(opts),
		newAddRepoCmd(opts),
	)
	return cmd
}

// load reads the config file and configures logging from it.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		// Still honour --log-level for the error path
		_ = configureLogger(o.logLevel, "")
		return nil, err
	}
	if err := configureLogger(o.logLevel, cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the mirror: workers, scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			inst, err := mirror.FromConfig(cfg).Build(ctx)
			if err != nil {
				return err
			}
			defer inst.Close()

			return inst.Run(ctx)
		},
	}
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file if it doesn't exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configureLogger(opts.logLevel, ""); err != nil {
				return err
			}
			if err := config.CreateDefaultConfig(opts.configPath); err != nil {
				return fmt.Errorf("failed to create default configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration at %s\n", opts.configPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials can be provided via %s and %s\n",
				config.EnvGitHubToken, config.EnvZenHubAPIKey)
			return nil
		},
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and resolve every configured owner and repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Build without a listener; nothing is started.
			inst, err := mirror.FromConfig(cfg).HTTPAddr("").Build(ctx)
			if err != nil {
				return err
			}
			defer inst.Close()

			out := cmd.OutOrStdout()
			sel := inst.Selection()
			for _, o := range sel.Owners {
				fmt.Fprintf(out, "%s\n", o)
			}
			for _, r := range sel.Repositories {
				fmt.Fprintf(out, "%s - %s/%s (%d)\n", r.Owner.Kind, r.Owner.Name, r.Name, r.ID)
			}
			fmt.Fprintf(out, "store %s initialized: %t\n", cfg.DBPath, inst.DB().IsInitialized())
			return nil
		},
	}
}

func newAddRepoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-repo owner/name",
		Short: "Add an individual repository to the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			repo := args[0]
			if _, _, err := sync.ParseRepositoryString(repo); err != nil {
				return err
			}

			if slices.ContainsFunc(cfg.IndividualRepoList, func(r string) bool { return strings.EqualFold(r, repo) }) {
				fmt.Fprintf(cmd.OutOrStdout(), "Repository %s already exists in configuration\n", repo)
				return nil
			}
			if err := config.ValidateSelection(cfg.OrgList, cfg.UserRepoList, []string{repo}); err != nil {
				return err
			}

			// Re-read the raw file so resolved paths and env overrides are not written back.
			raw, err := config.ReadFile(opts.configPath)
			if err != nil {
				return err
			}
			raw.IndividualRepoList = append(raw.IndividualRepoList, repo)
			if err := config.SaveConfig(raw, opts.configPath); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added repository %s to configuration\n", repo)
			return nil
		},
	}
}
