package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/cmdweb"
	"pkt.systems/cmdweb/httpapi"
	"pkt.systems/cmdweb/internal/appconfig"
	"pkt.systems/cmdweb/internal/suggest"
	"pkt.systems/cmdweb/internal/version"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/cmdweb/sshserver"
	"pkt.systems/pslog"
)

//go:embed assets/logo.txt
var serveLogo string

func newServeCmd() *cobra.Command {
	var cfgPath string
	var disableAuditTrails bool
	var noBanner bool
	var noHTTP bool
	var noSSH bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and SSH terminal servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logMode := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_MODE")))
			showBanner := !noBanner && logMode != "json" && logMode != "structured"
			if showBanner && serveLogo != "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), serveLogo)
			}
			logger := pslog.Ctx(cmd.Context())
			build := version.Read(schema.AppVersion)
			logger.Info("cmdweb starting", "release", build.Release, "build", build.Clean().Build, "modified", build.Modified)
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			var opts []cmdweb.ServerOption
			if !noHTTP {
				opts = append(opts, cmdweb.WithHTTP())
			}
			if !noSSH {
				opts = append(opts, cmdweb.WithSSH())
			}
			serverCfg := toServerConfig(cfg)
			logger.Info("suggest sources selected", "source", serverCfg.Suggest.Source, "fuzzy", serverCfg.Suggest.Fuzzy, "limit", serverCfg.Suggest.Limit)
			server, err := cmdweb.New(serverCfg, cmdweb.ServerDeps{Logger: logger}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if !noHTTP {
				logger.Info("http server listening", "addr", serverCfg.HTTP.Addr)
			}
			if !noSSH {
				logger.Info("ssh server listening", "addr", serverCfg.SSH.Addr)
			}
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for commands")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "disable startup banner")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "do not start the HTTP server")
	cmd.Flags().BoolVar(&noSSH, "no-ssh", false, "do not start the SSH server")
	return cmd
}

func toServerConfig(cfg appconfig.Config) cmdweb.ServerConfig {
	return cmdweb.ServerConfig{
		Editor:  cfg.EditorSettings(),
		Suggest: toSuggestConfig(cfg.Suggest),
		HTTP:    toHTTPConfig(cfg.HTTP),
		SSH:     toSSHConfig(cfg.SSH),
	}
}

func toSuggestConfig(cfg appconfig.SuggestConfig) suggest.Config {
	return suggest.Config{
		Source:         cfg.Source,
		VocabularyFile: cfg.VocabularyFile,
		RemoteURL:      cfg.RemoteURL,
		Limit:          cfg.Limit,
		Fuzzy:          cfg.Fuzzy,
		RatePerSecond:  cfg.RatePerSecond,
		Burst:          cfg.Burst,
	}
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:            cfg.Addr,
		SessionCookie:   cfg.SessionCookie,
		SessionTTLHours: cfg.SessionTTLHours,
		BaseURL:         cfg.BaseURL,
		BasePath:        cfg.BasePath,
		HubHistory:      cfg.HubHistory,
	}
}

func toSSHConfig(cfg appconfig.SSHConfig) sshserver.Config {
	return sshserver.Config{
		Addr:        cfg.Addr,
		HostKeyPath: cfg.HostKeyPath,
	}
}
