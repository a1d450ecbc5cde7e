package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jrsteele09/cmp-client/internal/config"
	"github.com/jrsteele09/cmp-client/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const configPathEnvVar = "CMP_CONFIG_PATH"

// NewRootCmd creates the cmpctl command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "cmpctl",
		Short: "Command line client for the cloud management platform",
		Long: "cmpctl signs in to the cloud management platform, keeps the session between runs\n" +
			"and calls the platform API on your behalf.\n\nEnvironment:\n" + config.Usage(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.SetVersionTemplate(fmt.Sprintf("cmpctl version %s\n", version))

	root.PersistentFlags().String("config", "", "Path to a YAML config file (env "+configPathEnvVar+")")
	root.PersistentFlags().String("log-level", "", "Override LOG_LEVEL")

	root.AddCommand(NewLoginCmd())
	root.AddCommand(NewSignupCmd())
	root.AddCommand(NewLogoutCmd())
	root.AddCommand(NewWhoamiCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewOpenCmd())
	root.AddCommand(NewAPICmd())
	root.AddCommand(NewMockAPICmd())
	root.AddCommand(NewVersionCmd(version))

	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(configPathEnvVar)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, exitError(exitFailure, "loading configuration: %v", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.EnvConfig) zerolog.Logger {
	level := cfg.GetLogLevel()
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	logger := logging.New(cfg.GetEnv(), level, cmd.ErrOrStderr())
	log.Logger = logger
	return logger
}

// withApp opens the App for the duration of run.
func withApp(cmd *cobra.Command, run func(ctx context.Context, app *App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := OpenApp(ctx, cfg, logger)
	if err != nil {
		return exitError(exitFailure, "%v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Err(err).Msg("closing session storage")
		}
	}()

	return run(ctx, app)
}
