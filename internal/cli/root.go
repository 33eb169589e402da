// Package cli defines the atlas command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/atlas-chat/internal/client"
	"github.com/suykerbuyk/atlas-chat/internal/config"
	"github.com/suykerbuyk/atlas-chat/internal/logging"
	"github.com/suykerbuyk/atlas-chat/internal/render"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "0.1.0"

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "atlas",
		Short: "Stream, capture and replay assistant conversations",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.ConfigDir()+"/config.toml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable styled output")

	rootCmd.AddCommand(
		newInitCmd(),
		newChatCmd(a),
		newPlayCmd(a),
		newWatchCmd(a),
		newReplayCmd(a),
		newImportCmd(a),
		newConversationsCmd(a),
		newCapturesCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

func (a *app) load(stderr io.Writer) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := a.cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger = logging.New(level, stderr)
	return nil
}

func (a *app) renderOptions(details bool) render.Options {
	return render.Options{Color: a.cfg.Render.Color && !a.noColor, Details: details}
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.Backend.BaseURL, a.cfg.Token(), client.WithHeaderTimeout(a.cfg.Timeout()))
}

func (a *app) dataDir() (string, error) {
	dir := a.cfg.Storage.DataDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

func newInitCmd() *cobra.Command {
	var dataDir, baseURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		// Runs before any config exists.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.WriteDefault(dataDir, baseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\n", config.CompressHome(path))
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for history, index and captures")
	cmd.Flags().StringVar(&baseURL, "url", "", "backend base URL")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "atlas v%s (%s)\n", Version, config.AppName)
		},
	}
}
