package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/CliForge/emsapi/pkg/auth/types"
	"github.com/CliForge/emsapi/pkg/client"
	"github.com/CliForge/emsapi/pkg/config"
	"github.com/CliForge/emsapi/pkg/logging"
	"github.com/CliForge/emsapi/pkg/output"
	"github.com/CliForge/emsapi/pkg/progress"
	"github.com/spf13/pflag"
)

// app holds the global flags and the objects built from them.
type app struct {
	configPath   string
	debug        bool
	logFormat    string
	trustedName  string
	trustedValue string
	outputFormat string
	quiet        bool

	out         io.Writer
	errOut      io.Writer
	interactive bool
	flags       *pflag.FlagSet

	cfg    *config.Config
	logger *slog.Logger
}

func (a *app) loader() *config.Loader {
	var opts []config.LoaderOption
	if a.flags != nil {
		opts = append(opts, config.WithFlags(a.flags, map[string]string{"log.format": "log-format"}))
	}
	if a.configPath != "" {
		opts = append(opts, config.WithConfigFile(a.configPath))
	}
	return config.NewLoader(client.AppName, opts...)
}

// load reads the configuration and sets up logging.
func (a *app) load() error {
	cfg, err := a.loader().Load()
	if err != nil {
		return err
	}

	// A memory cache would be gone by the next invocation.
	if cfg.Storage.Type == types.StorageTypeMemory {
		cfg.Storage.Type = types.StorageTypeFile
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if a.debug {
		level = slog.LevelDebug
	}
	format := logging.Format(cfg.Log.Format)

	a.cfg = cfg
	a.logger = logging.New(a.errOut, level, format)
	return nil
}

// service loads the configuration and builds a Service from it.
func (a *app) service() (*client.Service, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	return client.New(a.cfg, client.WithLogger(a.logger))
}

// callContext returns the trusted identity given on the command line, or
// nil to use the configured identity.
func (a *app) callContext() *client.CallContext {
	if a.trustedName == "" && a.trustedValue == "" {
		return nil
	}
	return &client.CallContext{TrustedAuthName: a.trustedName, TrustedAuthValue: a.trustedValue}
}

func (a *app) render(data any) error {
	f, err := output.NewFormatter(a.outputFormat)
	if err != nil {
		return err
	}
	return f.Format(a.out, data, output.NewFormatConfig())
}

func (a *app) spinner() *progress.Spinner {
	cfg := progress.DefaultConfig()
	cfg.Enabled = a.interactive && !a.quiet && !a.debug
	cfg.Writer = a.errOut
	return progress.NewSpinner(cfg)
}

// closeService persists the token cache and reports failures on stderr.
func (a *app) closeService(ctx context.Context, svc *client.Service) {
	if err := svc.Close(ctx); err != nil {
		writeln(a.errOut, "warning: %v", err)
	}
}

func readData(arg string) ([]byte, error) {
	switch {
	case arg == "":
		return nil, nil
	case arg == "-":
		return io.ReadAll(os.Stdin)
	case arg[0] == '@':
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return data, nil
	default:
		return []byte(arg), nil
	}
}
