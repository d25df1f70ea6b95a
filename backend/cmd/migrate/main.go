// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Command migrate opens the configured record store and applies its schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/efchatnet/stem/backend/config"
	"github.com/efchatnet/stem/backend/integration"
	"github.com/efchatnet/stem/backend/logging"
)

type options struct {
	ConfigPath string
	EnvPath    string
	Backend    string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "stem-migrate",
		Short:         "Prepare the configured record store",
		Long:          "Opens the configured stem backend and applies its schema migrations.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "./stem.yaml", "path to config file")
	cmd.Flags().StringVar(&opts.EnvPath, "env", ".env", "path to .env file")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "override the configured backend")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.ConfigPath, opts.EnvPath)
	if err != nil {
		return err
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log := logging.New(cfg.Logging.Level, cmd.ErrOrStderr())

	ctx := cmd.Context()
	store, err := integration.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	defer store.Close()

	if err := integration.Migrate(ctx, store); err != nil {
		return err
	}
	log.Info("store ready", "backend", cfg.Backend)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: migrated\n", cfg.Backend)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stem-migrate:", err)
		os.Exit(1)
	}
}
