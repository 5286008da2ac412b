package main

import (
	"fmt"
	"strings"

	"github.com/kapu/famescale/internal/app"
	"github.com/kapu/famescale/internal/fame"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the fame categories and character list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSnapshot(cmd, func(c *app.Container, snap *fame.Snapshot) error {
			out, err := c.Formatter.FormatSnapshot(snap)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "List characters whose name contains term",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := strings.Join(args, " ")
		return withSnapshot(cmd, func(c *app.Container, snap *fame.Snapshot) error {
			cards := fame.SearchByName(snap.Characters, term)
			fmt.Fprintln(cmd.OutOrStdout(), c.Formatter.FormatSearch(term, cards))
			return nil
		})
	},
}

var characterCmd = &cobra.Command{
	Use:   "character <name>",
	Short: "Show the highest fame record of a character",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		return withSnapshot(cmd, func(c *app.Container, snap *fame.Snapshot) error {
			record := fame.FindCharacter(snap.Records, name)
			if record == nil {
				fmt.Fprintln(cmd.OutOrStdout(), c.Formatter.FormatError(fmt.Sprintf("No fame record for %q", name)))
				return fmt.Errorf("character %q not found", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Formatter.FormatCharacter(record))
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fame snapshot over HTTP and WebSocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		container, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown(container)

		cfg := container.Config
		container.Logger.Info("famescale server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.Duration("refresh_interval", cfg.Server.RefreshInterval),
		)

		if err := container.NewServer().Run(cmd.Context(), cfg.Server.Addr, cfg.Server.RefreshInterval); err != nil {
			container.Logger.Error("Server error", zap.Error(err))
			return err
		}
		container.Logger.Info("Shutdown complete")
		return nil
	},
}

// withSnapshot runs one load cycle and hands the result to fn. A stale
// snapshot's notice goes to stderr.
func withSnapshot(cmd *cobra.Command, fn func(*app.Container, *fame.Snapshot) error) error {
	container, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer shutdown(container)

	snap := container.Service.Refresh(cmd.Context())
	if snap.Stale && snap.Notice != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), snap.Notice)
	}
	return fn(container, snap)
}
