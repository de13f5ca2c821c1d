package main

import (
	"time"

	"github.com/CliForge/emsapi/pkg/auth"
	"github.com/CliForge/emsapi/pkg/secrets"
	"github.com/spf13/cobra"
)

// tokenInfo is what `emsctl token` prints.
type tokenInfo struct {
	Identity    string       `json:"identity" yaml:"identity"`
	AccessToken string       `json:"access_token" yaml:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at" yaml:"expires_at"`
	ExpiresIn   string       `json:"expires_in" yaml:"expires_in"`
	Claims      *auth.Claims `json:"claims,omitempty" yaml:"claims,omitempty"`
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		decode bool
		show   bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Acquire a token and print it",
		Long: `Acquire a token for the configured identity, or the one given with
--trusted-name/--trusted-value, and print it.

A valid cached token is reused. The token itself is masked unless --show
is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer a.closeService(ctx, svc)

			cc := a.callContext()
			var info tokenInfo
			err = progressRun(a, "Authenticating...", func() error {
				tok, err := svc.Authenticate(ctx, cc)
				if err != nil {
					return err
				}
				now := time.Now()
				info = tokenInfo{
					AccessToken: tok.AccessToken,
					ExpiresAt:   tok.ExpiresAt,
					ExpiresIn:   tok.Remaining(now).Round(time.Second).String(),
				}
				return nil
			})
			if err != nil {
				return err
			}

			info.Identity = identityOf(a, cc)
			if decode {
				claims, err := auth.InspectToken(info.AccessToken)
				if err != nil {
					writeln(a.errOut, "note: %v", err)
				} else {
					info.Claims = claims
				}
			}
			if !show {
				info.AccessToken = secrets.MustDefault().Mask(info.AccessToken)
			}
			return a.render(info)
		},
	}

	cmd.Flags().BoolVar(&decode, "decode", false, "Decode JWT claims (signature is not verified)")
	cmd.Flags().BoolVar(&show, "show", false, "Print the token unmasked")

	return cmd
}

// identityOf names the cache key the command used.
func identityOf(a *app, cc *auth.CallContext) string {
	if cc != nil && cc.TrustedAuthValue != "" {
		name := cc.TrustedAuthName
		if name == "" {
			name = a.cfg.Trusted.Name
		}
		return auth.TrustedTokenKey(name, cc.TrustedAuthValue)
	}
	if a.cfg.Username != "" {
		return auth.PasswordCacheKey
	}
	return auth.TrustedTokenKey(a.cfg.Trusted.Name, a.cfg.Trusted.Value)
}
