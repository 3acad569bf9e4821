package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fragile/internal/config"
	"github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
)

var (
	verbose        bool
	jsonOutput     bool
	hostConfigPath string
	suPath         string
	noDestroy      bool
	destroyID      string
)

var rootCmd = &cobra.Command{
	Use:   "fragile [options] <config-file> <test-command> [<test-arg>...]",
	Short: "Run a test command inside a throwaway NixOS container",
	Long: `fragile builds a NixOS container from <config-file>, runs the test
command inside it as root and destroys the container afterwards.

The exit status is the test command's own. Infrastructure failures exit
with 2 and usage errors with 1.

Each container gets:
  - A private /24 from the host's address pool
  - A fresh root filesystem and system profile
  - configuration.nix importing <config-file>`,
	Args:          validateArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
	RunE: runRoot,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.Flags().StringVar(&hostConfigPath, "host-config", config.DefaultConfigFile, "Host configuration file")
	rootCmd.Flags().StringVar(&suPath, "su-path", "", "su inside the container (overrides su_path)")
	rootCmd.Flags().BoolVar(&noDestroy, "no-destroy", false, "Keep the container after the test command exits")
	rootCmd.Flags().StringVar(&destroyID, "destroy", "", "Stop and destroy a kept container instead of running a test")

	// Everything after <config-file> belongs to the test command.
	rootCmd.Flags().SetInterspersed(false)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.UsageWrap("invalid flags", err)
	})
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if destroyID != "" {
		if len(args) > 0 {
			return errors.Usage("--destroy takes no positional arguments")
		}
		if noDestroy {
			return errors.Usage("--destroy and --no-destroy are mutually exclusive")
		}
		return nil
	}
	if len(args) < 2 {
		return errors.Usage("expected <config-file> <test-command> [<test-arg>...]")
	}
	return nil
}

// loadHostConfig reads --host-config and applies flag overrides.
func loadHostConfig() (*config.HostConfig, error) {
	cfg, err := config.Load(hostConfigPath)
	if err != nil {
		return nil, errors.UsageWrap("bad host configuration", err)
	}
	if suPath != "" {
		cfg.SuPath = suPath
	}
	return cfg, nil
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)
