package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/cmdweb/bootstrap"
	"pkt.systems/pslog"
)

func newBootstrapCmd() *cobra.Command {
	var outputDir string
	var overwrite bool
	var binary string
	var sets []string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Generate config, vocabulary and a service unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			out := outputDir
			if out == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				out = filepath.Join(home, ".cmdweb")
			}
			overrides := make([]bootstrap.ConfigOverride, 0, len(sets))
			for _, raw := range sets {
				override, err := bootstrap.ParseOverride(raw)
				if err != nil {
					return err
				}
				overrides = append(overrides, override)
			}
			if binary == "" {
				if exe, err := os.Executable(); err == nil {
					binary = exe
				}
			}
			paths, err := bootstrap.WriteBootstrap(out, overwrite, bootstrap.Options{Binary: binary, Overrides: overrides})
			if err != nil {
				return err
			}
			logger.Info("bootstrap wrote", "path", paths.ConfigPath, "name", "config.yaml")
			logger.Info("bootstrap wrote", "path", paths.VocabularyPath, "name", "vocabulary.txt")
			logger.Info("bootstrap wrote", "path", paths.ServiceUnitPath, "name", "cmdweb.service")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite existing files")
	cmd.Flags().StringVar(&binary, "binary", "", "binary path for the service unit (defaults to this executable)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "config override as key=value (repeatable)")
	return cmd
}
