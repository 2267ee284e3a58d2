package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reconciler/internal/config"
	"reconciler/pkg/utils"
)

// RootOptions - общие флаги и загруженная конфигурация
type RootOptions struct {
	EnvFile  string
	LogLevel string

	Config *config.Config
}

// NewRootCommand создаёт корневую команду reconciler
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reconciler",
		Short: "Order fill reconciliation and balance ledger",
		Long: `reconciler polls the trading venue for every PENDING order, maps the venue
status onto the local lifecycle and settles filled orders into user balances.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to .env file (missing file is ignored)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewFeesCommand(opts))

	return cmd
}

// load читает конфигурацию и настраивает глобальный логгер
func (o *RootOptions) load() error {
	cfg, err := config.LoadWithEnvFile(o.EnvFile)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load config", err)
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}

	o.Config = cfg
	utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	utils.L().Debug("config loaded", zap.String("database", cfg.Database.DSNWithoutPassword()))
	return nil
}
