package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/xkilldash9x/uiverify/internal/browser"
	"github.com/xkilldash9x/uiverify/internal/browser/cdp"
	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/observability"
	"github.com/xkilldash9x/uiverify/internal/report"
	"github.com/xkilldash9x/uiverify/internal/scenario"
	"github.com/xkilldash9x/uiverify/internal/verify"
)

// defaultScenario runs when neither a name nor --file is given.
const defaultScenario = "render"

// Seams for tests.
var (
	newLauncher = func(cfg config.BrowserConfig, logger *zap.Logger) browser.Launcher {
		return cdp.NewLauncher(cfg, logger)
	}
	appFs = afero.NewOsFs()
)

// flagKeys maps run flags to the config keys they override.
var flagKeys = map[string]string{
	"url":                "target.base_url",
	"screenshot":         "output.screenshot",
	"report":             "output.report",
	"output-dir":         "output.dir",
	"headless":           "browser.headless",
	"chrome":             "browser.exec_path",
	"timeout-navigation": "timeouts.navigation",
	"timeout-readiness":  "timeouts.readiness",
	"timeout-action":     "timeouts.action",
	"timeout-assertion":  "timeouts.assertion",
	"timeout-capture":    "timeouts.capture",
	"retries":            "retry.attempts",
}

// newRunCmd creates and configures the `run` command.
func newRunCmd(v *viper.Viper) *cobra.Command {
	var file string

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "Runs a built-in scenario or a scenario file against the target",
		Long: `Runs one scenario and exits with its verdict:
  0 passed, 1 failed, 2 aborted (launch or navigation failure), 3 usage error.

Without arguments the "render" scenario runs. See "uiverify scenarios".`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags override the config file and environment only when set.
			for name, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
					return usageError(err)
				}
			}
			if file != "" && len(args) > 0 {
				return usageError(fmt.Errorf("give either a scenario name or --file, not both"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return usageError(err)
			}

			sc, err := loadScenario(file, args)
			if err != nil {
				return usageError(err)
			}

			runner := verify.NewRunner(newLauncher(cfg.Browser(), logger), appFs, verify.OptionsFromConfig(cfg), logger)
			rep, err := runner.Run(ctx, sc)
			if err != nil {
				return usageError(err)
			}

			if path := cfg.Output().Report; path != "" {
				written, err := report.Write(appFs, path, rep)
				if err != nil {
					// The verdict stands; a missing report file is logged, not fatal.
					logger.Error("Failed to write run report", zap.Error(err))
				} else {
					logger.Info("Run report written", zap.String("path", written))
				}
			}

			out := cmd.OutOrStdout()
			if err := report.PrintSummary(out, rep, isTerminal(out)); err != nil {
				logger.Warn("Failed to print summary", zap.Error(err))
			}

			if rep.ExitCode != verify.ExitPassed {
				return &ExitError{Code: rep.ExitCode, Err: fmt.Errorf("scenario %q %s", sc.Name, rep.Verdict)}
			}
			return nil
		},
	}

	runCmd.Flags().StringVarP(&file, "file", "f", "", "YAML scenario file to run instead of a built-in scenario")

	// Config override flags.
	runCmd.Flags().StringP("url", "u", "", "Base URL of the application under test. (Overrides config/env)")
	runCmd.Flags().StringP("screenshot", "s", "", "Screenshot path. (Overrides the scenario and config)")
	runCmd.Flags().StringP("report", "r", "", "Write a JSON run report to this path.")
	runCmd.Flags().String("output-dir", "", "Directory for relative artifact paths.")
	runCmd.Flags().Bool("headless", true, "Run Chrome without a window.")
	runCmd.Flags().String("chrome", "", "Path to the Chrome executable.")
	runCmd.Flags().Duration("timeout-navigation", 0, "Page load timeout. (Overrides config/env)")
	runCmd.Flags().Duration("timeout-readiness", 0, "Default readiness wait timeout. (Overrides config/env)")
	runCmd.Flags().Duration("timeout-action", 0, "Implicit wait before each interaction. (Overrides config/env)")
	runCmd.Flags().Duration("timeout-assertion", 0, "Assertion grace period. (Overrides config/env)")
	runCmd.Flags().Duration("timeout-capture", 0, "Screenshot timeout. (Overrides config/env)")
	runCmd.Flags().Int("retries", 0, "Attempts per readiness wait. (Overrides config/env)")

	return runCmd
}

func loadScenario(file string, args []string) (verify.Scenario, error) {
	if file != "" {
		return scenario.LoadFile(appFs, file)
	}
	name := defaultScenario
	if len(args) > 0 {
		name = args[0]
	}
	return scenario.Builtin(name)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
