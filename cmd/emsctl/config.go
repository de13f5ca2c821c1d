package main

import (
	"fmt"

	"github.com/CliForge/emsapi/pkg/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigPathCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		endpoint string
		username string
		clientID string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file skeleton",
		Long: `Write a config file with every default filled in.

Secrets are written as environment references ($EMS_PASSWORD,
$EMS_CLIENT_SECRET) so they never land on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := a.loader()
			path := loader.ConfigPath()
			if loader.Exists() && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			cfg.Endpoint = endpoint
			if username != "" {
				cfg.Username = username
				cfg.Password = "$EMS_PASSWORD"
			}
			if clientID != "" {
				cfg.Trusted.ClientID = clientID
				cfg.Trusted.ClientSecret = "$EMS_CLIENT_SECRET"
			}

			if err := loader.Save(cfg, path); err != nil {
				return err
			}
			writeln(a.out, "✓ Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "https://ems.example.com/api", "API endpoint")
	cmd.Flags().StringVar(&username, "username", "", "Service account user name")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Trusted client id")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeln(a.out, "%s", a.loader().ConfigPath())
			return nil
		},
	}
}
