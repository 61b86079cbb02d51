package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"simple-ledger-go/common"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// The prefix for configuration keys inside environment.
	envPrefix = "LEDGER"

	keyConfig    = "config"
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
)

type baseConfiguration struct {
	// Configuration file (yaml, toml, json or props). Optional.
	CfgFile   string
	LogLevel  string
	LogFormat string

	out io.Writer
}

// Run executes the command line given in args.
func Run(ctx context.Context, args []string) error {
	cmd := newRootCmd(startLedgerNode)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(run nodeRunFunc) *cobra.Command {
	config := &baseConfiguration{}
	var rootCmd = &cobra.Command{
		Use:           "ledger-node",
		Short:         "A minimal proof of work ledger node",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.out = cmd.OutOrStdout()
			if err := initializeConfig(cmd, config); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&config.CfgFile, keyConfig, "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel, keyLogLevel, "info", "log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat, keyLogFormat, "console", "log format (console|json)")

	rootCmd.AddCommand(newRunCmd(config, run))
	return rootCmd
}

// initializeConfig reads in config file and ENV variables if set. Flags
// given on the command line win over environment, environment over file.
func initializeConfig(cmd *cobra.Command, config *baseConfiguration) error {
	v := viper.New()

	if len(config.CfgFile) != 0 {
		if !common.ExistFile(config.CfgFile) {
			return fmt.Errorf("config file %q does not exist", config.CfgFile)
		}
		v.SetConfigFile(config.CfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	// a flag like --port binds to LEDGER_PORT
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindFlagErr []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyConfig {
			return
		}

		// Environment variables can't have dashes in them, so bind them to their equivalent
		// keys with underscores, e.g. --fetch-timeout to LEDGER_FETCH_TIMEOUT
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
				return
			}
		}

		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		val := fmt.Sprintf("%v", v.Get(f.Name))
		if f.Value.Type() == "stringSlice" {
			val = strings.Join(v.GetStringSlice(f.Name), ",")
		}
		if err := cmd.Flags().Set(f.Name, val); err != nil {
			bindFlagErr = append(bindFlagErr, fmt.Errorf("setting flag %q value: %w", f.Name, err))
		}
	})

	return errors.Join(bindFlagErr...)
}
