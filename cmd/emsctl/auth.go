package main

import (
	"time"

	"github.com/CliForge/emsapi/pkg/client"
	"github.com/spf13/cobra"
)

// cacheStatus is what `emsctl auth status` prints.
type cacheStatus struct {
	Endpoint   string              `json:"endpoint" yaml:"endpoint"`
	Storage    string              `json:"storage" yaml:"storage"`
	Identities []client.CacheEntry `json:"identities" yaml:"identities"`
}

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage cached tokens",
		Long: `Manage the persisted token cache.

Available subcommands:
  status - Show cached identities and their expiry
  clear  - Remove every cached token
  expire - Mark every cached token expired, keeping the identities`,
	}

	cmd.AddCommand(newAuthStatusCmd(a))
	cmd.AddCommand(newAuthClearCmd(a))
	cmd.AddCommand(newAuthExpireCmd(a))

	return cmd
}

func newAuthStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cached identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer a.closeService(cmd.Context(), svc)

			status := cacheStatus{
				Endpoint:   a.cfg.Endpoint,
				Storage:    string(a.cfg.Storage.Type),
				Identities: svc.CacheEntries(),
			}
			for i := range status.Identities {
				status.Identities[i].ExpiresAt = status.Identities[i].ExpiresAt.Truncate(time.Second)
			}
			return a.render(status)
		},
	}
}

func newAuthClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			n := len(svc.CachedIdentities())
			svc.ClearAuthenticationCache()
			if err := svc.Close(cmd.Context()); err != nil {
				return err
			}
			writeln(a.out, "✓ Removed %d cached token(s)", n)
			return nil
		},
	}
}

func newAuthExpireCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Expire every cached token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			svc.ExpireAuthenticationCacheEntries()
			if err := svc.Close(cmd.Context()); err != nil {
				return err
			}
			writeln(a.out, "✓ Expired %d cached token(s)", len(svc.CachedIdentities()))
			return nil
		},
	}
}
