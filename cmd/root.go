// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/observability"
	"github.com/xkilldash9x/uiverify/internal/verify"
)

// ExitError carries the process exit code a command wants. Commands return
// it instead of calling os.Exit so deferred teardown still runs.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// usageError marks configuration and scenario problems.
func usageError(err error) error {
	return &ExitError{Code: verify.ExitUsage, Err: err}
}

// NewRootCommand builds a fresh command tree. Each tree owns its viper
// instance, so tests and repeated invocations never share flag state.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "uiverify",
		Short: "uiverify drives a headless browser through a UI verification scenario.",
		Long: `uiverify loads the target web application in headless Chrome, runs an
ordered scenario of waits, interactions and assertions, captures a full-page
screenshot and reports a verdict through its exit code.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Runs before any subcommand: config file, env, then logging.
			if err := initializeConfig(v, cfgFile); err != nil {
				return usageError(err)
			}

			var logCfg config.LoggerConfig
			if err := v.UnmarshalKey("logger", &logCfg); err != nil {
				observability.InitializeWriter(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "uiverify"}, cmd.ErrOrStderr())
				return usageError(fmt.Errorf("failed to unmarshal logger config: %w", err))
			}
			// Logs go to stderr; stdout carries the run summary.
			observability.InitializeWriter(logCfg, cmd.ErrOrStderr())
			observability.GetLogger().Debug("Starting uiverify", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(newRunCmd(v))
	rootCmd.AddCommand(newScenariosCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree with ctx, which carries signal cancellation.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code != verify.ExitUsage {
		// The verdict was already printed; nothing more to say.
		return err
	}
	observability.GetLogger().Error("Command execution failed", zap.Error(err))
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	return err
}

// initializeConfig reads the config file and environment into v.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("UIVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env apply.
	}
	return nil
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return verify.ExitPassed
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return verify.ExitAborted
	}
	return verify.ExitUsage
}
