package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/cmdweb/internal/appconfig"
	"pkt.systems/cmdweb/internal/command"
	"pkt.systems/cmdweb/internal/suggest"
	"pkt.systems/pslog"
)

func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Debug helpers for cmdweb",
	}
	cmd.AddCommand(newDebugSuggestCmd())
	return cmd
}

func newDebugSuggestCmd() *cobra.Command {
	var cfgPath string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Query the configured suggestion sources once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			dispatcher := command.NewDispatcher(command.Config{DisableAuditLogging: true})
			provider, closer, err := suggest.Build(cmd.Context(), toSuggestConfig(cfg.Suggest), dispatcher.Vocabulary())
			if err != nil {
				return err
			}
			if closer != nil {
				defer func() { _ = closer.Close() }()
			}
			if provider == nil {
				logger.Info("suggest debug disabled", "source", cfg.Suggest.Source)
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			start := time.Now()
			candidates, err := provider.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			logger.Info("suggest debug lookup", "source", cfg.Suggest.Source, "prefix", args[0], "count", len(candidates), "elapsed", time.Since(start))
			if len(candidates) > 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(candidates, "\n"))
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "lookup timeout")
	return cmd
}
