// Command sherlock is a transparent LLM traffic inspector.
//
// Usage:
//
//	sherlock start [--port N] [--limit N]   run the proxy and dashboard
//	sherlock claude [args...]               run Claude Code through the proxy
//	sherlock run -P openai -- cmd [args...] run any tool through the proxy
//	sherlock config init                    write a default config file
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/compresr/sherlock/internal/config"
)

var version = "0.1.0"

// cliOptions holds the root persistent flags.
type cliOptions struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		printError(err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:     "sherlock",
		Short:   "LLM traffic inspector and token usage tracker",
		Version: version,
		// Parent flags are parsed while walking to the subcommand, so tool
		// commands can receive their own arguments untouched.
		TraverseChildren: true,
		SilenceUsage:     true,
		SilenceErrors:    true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadEnvFiles()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultConfigPath, "path to config file")
	root.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")

	root.AddGroup(
		&cobra.Group{ID: "proxy", Title: "Proxy:"},
		&cobra.Group{ID: "tools", Title: "Run a tool through the proxy:"},
	)

	start := startCmd(opts)
	start.GroupID = "proxy"
	root.AddCommand(start)

	for _, t := range knownTools {
		c := toolCmd(opts, t)
		c.GroupID = "tools"
		root.AddCommand(c)
	}
	run := runCmd(opts)
	run.GroupID = "tools"
	root.AddCommand(run)

	root.AddCommand(configCmd(opts))
	return root
}

// loadConfig reads the config file named by --config.
func (o *cliOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", o.configPath, err)
	}
	return cfg, nil
}

// loadEnvFiles loads .env from standard locations. Existing variables win.
func loadEnvFiles() {
	if homeDir, err := os.UserHomeDir(); err == nil {
		configEnv := filepath.Join(homeDir, ".config", "sherlock", ".env")
		if _, err := os.Stat(configEnv); err == nil {
			_ = godotenv.Load(configEnv)
		}
	}
	_ = godotenv.Load()
}

// exitCodeError carries a child process exit code up to main.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
