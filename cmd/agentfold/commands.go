package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agentfold/agentfold/pkg/config"
	"github.com/agentfold/agentfold/pkg/store"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFile  string
	category string
	version  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "agentfold",
		Short:         "Event-sourced agent sessions over Message DB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(flags.envFile); err != nil {
				// Missing .env is fine; the environment may already be set.
				slog.Debug("No .env file loaded", "path", flags.envFile)
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			return config.SetupLogging(cfg.LogLevel, cfg.LogFormat)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Path to .env configuration file")
	root.PersistentFlags().StringVar(&flags.category, "category", store.DefaultCategory, "Stream category")
	root.PersistentFlags().StringVar(&flags.version, "version", store.DefaultVersion, "Stream schema version")

	root.AddCommand(
		buildStartCmd(flags),
		buildMessageCmd(flags),
		buildContinueCmd(flags),
		buildShowCmd(flags),
		buildListCmd(flags),
		buildServeCmd(flags),
	)
	return root
}

// exactArgs validates positional arity, tagging failures as usage
// errors.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: %q accepts %d arg(s), received %d", errUsage, cmd.Name(), n, len(args))
		}
		return nil
	}
}

func buildStartCmd(flags *globalFlags) *cobra.Command {
	var maxIterations int
	cmd := &cobra.Command{
		Use:   "start <message>",
		Short: "Start a new agent session with an initial message",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, flags, args[0], maxIterations)
		},
	}
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Override max iterations from config")
	return cmd
}

func buildMessageCmd(flags *globalFlags) *cobra.Command {
	var process bool
	cmd := &cobra.Command{
		Use:   "message <thread-id> <message>",
		Short: "Add a follow-up message to an existing session",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMessage(cmd, flags, args[0], args[1], process)
		},
	}
	cmd.Flags().BoolVar(&process, "process", true, "Process the thread after adding the message")
	return cmd
}

func buildContinueCmd(flags *globalFlags) *cobra.Command {
	var maxIterations int
	cmd := &cobra.Command{
		Use:   "continue <thread-id>",
		Short: "Continue processing an existing agent session",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContinue(cmd, flags, args[0], maxIterations)
		},
	}
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Override max iterations from config")
	return cmd
}

func buildShowCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		full   bool
	)
	cmd := &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Display the events of a session",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("%w: invalid --format %q, must be text or json", errUsage, format)
			}
			return runShow(cmd, flags, args[0], format, full)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&full, "full", false, "Show full event data including metadata")
	return cmd
}

func buildListCmd(flags *globalFlags) *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("%w: invalid --format %q, must be text or json", errUsage, format)
			}
			if limit < 1 {
				return fmt.Errorf("%w: --limit must be positive", errUsage)
			}
			return runList(cmd, flags, limit, format)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of sessions to list")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func buildServeCmd(flags *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: HTTP_PORT or 8080)")
	return cmd
}
