package main

import (
	"github.com/spf13/cobra"

	"ipvcore/internal/platform/config"
)

type rootOptions struct {
	cfg config.Server
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{cfg: config.FromEnv()}
	cmd := &cobra.Command{
		Use:           "ipvcore",
		Short:         "Identity proving journey engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	// Environment provides the defaults; flags override them.
	f := cmd.PersistentFlags()
	f.StringVar(&opts.cfg.LogLevel, "log-level", opts.cfg.LogLevel, "debug, info, warn or error")
	f.StringVar(&opts.cfg.CriConfigPath, "cri-config", opts.cfg.CriConfigPath, "credential issuer registry file")
	f.StringVar(&opts.cfg.CiPolicyPath, "ci-policy", opts.cfg.CiPolicyPath, "contra-indicator policy file")
	f.StringVar(&opts.cfg.FeatureFlagsPath, "features", opts.cfg.FeatureFlagsPath, "feature flags file, reloaded on change")

	cmd.AddCommand(newServeCmd(opts), newConsumeCmd(opts), newJourneyCmd(opts))
	return cmd
}
