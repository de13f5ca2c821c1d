// Package main implements emsctl, a command-line client for the EMS API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	version = "0.1.0"
	// BuildDate is set at build time
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout, errOut: os.Stderr, interactive: true}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emsctl",
		Short: "emsctl - call the EMS API from the command line",
		Long: `emsctl authenticates against an EMS API endpoint and issues requests
with the cached bearer token.

Settings come from the config file, EMS_API_* environment variables and
the global flags below, in increasing order of precedence.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	flags := cmd.PersistentFlags()
	a.flags = flags
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to the config file")
	flags.BoolVarP(&a.debug, "debug", "d", false, "Enable debug logging")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&a.trustedName, "trusted-name", "", "Trusted identity attribute for this call")
	flags.StringVar(&a.trustedValue, "trusted-value", "", "Trusted identity value for this call")
	flags.StringVarP(&a.outputFormat, "output", "o", "json", "Output format (json, yaml)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Hide progress indicators")

	cmd.AddCommand(newTokenCmd(a))
	cmd.AddCommand(newRequestCmd(a))
	cmd.AddCommand(newAuthCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}

// writeln ignores write errors on the terminal.
func writeln(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
