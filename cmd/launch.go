package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/compresr/sherlock/internal/config"
	"github.com/compresr/sherlock/internal/utils"
)

// tool is a CLI that can be pointed at the proxy through env vars.
type tool struct {
	name     string
	binary   string
	provider string
	short    string
}

var knownTools = []tool{
	{name: "claude", binary: "claude", provider: config.ProviderAnthropic, short: "Run Claude Code through the proxy"},
	{name: "happy", binary: "happy", provider: config.ProviderAnthropic, short: "Run Happy (Claude frontend) through the proxy"},
	{name: "gemini", binary: "gemini", provider: config.ProviderGemini, short: "Run Gemini CLI through the proxy"},
	{name: "codex", binary: "codex", provider: config.ProviderOpenAI, short: "Run OpenAI Codex through the proxy"},
}

func toolCmd(opts *cliOptions, t tool) *cobra.Command {
	return &cobra.Command{
		Use:   t.name + " [args...]",
		Short: t.short,
		// Every argument, flags included, belongs to the tool.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runTool(cfg, t.provider, t.binary, args)
		},
	}
}

func runCmd(opts *cliOptions) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "run -P provider [--] command [args...]",
		Short: "Run any command with a specified provider",
		Example: "  sherlock run -P openai -- aider --model gpt-4o\n" +
			"  sherlock run -P ollama ollama run llama3",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runTool(cfg, provider, args[0], args[1:])
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "P", "", "provider name (anthropic, openai, gemini, ollama)")
	_ = cmd.MarkFlagRequired("provider")
	// Flags after the command name belong to the command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// runTool launches binary with the provider's env vars pointing at the
// proxy. stdio is inherited and the child's exit code is propagated.
func runTool(cfg *config.Config, providerName, binary string, args []string) error {
	provider, err := cfg.Providers.Get(providerName)
	if err != nil {
		return err
	}
	if len(provider.EnvVars) == 0 {
		return fmt.Errorf("provider %q has no env_vars to point at the proxy", provider.Name)
	}

	proxyURL := cfg.ProxyURL()
	if !proxyReachable(strings.TrimPrefix(proxyURL, "http://")) {
		printWarn(fmt.Sprintf("No proxy listening on %s. Start one with: sherlock start", proxyURL))
	}

	printStep(fmt.Sprintf("Running %s with %s set to %s",
		binary, strings.Join(provider.EnvVars, ", "), proxyURL))

	cmd := exec.Command(binary, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = toolEnv(os.Environ(), provider.EnvVars, proxyURL)

	// The child owns Ctrl+C; the parent just waits for it to exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				// Killed by a signal.
				code = 1
			}
			return &exitCodeError{code: code}
		}
		return fmt.Errorf("failed to run %s: %w", utils.ShellQuote(binary), err)
	}
	return nil
}

// toolEnv returns environ with every name in vars set to value.
// Existing definitions of those names are replaced.
func toolEnv(environ, vars []string, value string) []string {
	override := make(map[string]bool, len(vars))
	for _, v := range vars {
		override[v] = true
	}

	env := make([]string, 0, len(environ)+len(vars))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if !override[name] {
			env = append(env, kv)
		}
	}
	for _, v := range vars {
		env = append(env, v+"="+value)
	}
	return env
}

// proxyReachable reports whether something accepts connections on addr.
func proxyReachable(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
