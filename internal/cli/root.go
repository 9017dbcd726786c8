// Package cli provides the command-line interface for pjplan.
package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swamp-dev/pjplan/internal/config"
)

var (
	cfgFile string
	verbose bool
	logger  = slog.New(slog.DiscardHandler)
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "pjplan",
	Short: "Resource-aware project scheduler",
	Long: `Pjplan schedules a work breakdown structure against the work calendars
of its resources.

It dates every task forward from a start date or backward from a deadline,
rolls estimates up the hierarchy and reports the critical path.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if verbose {
			logLevel = slog.LevelDebug
		}

		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: logLevel,
		}))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is pjplan.yaml in this or a parent directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format (text, json, yaml)")
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))

	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(criticalCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if found, err := config.FindConfigFile(); err == nil {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("pjplan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("PJPLAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing file is fine; loadConfig falls back to the defaults.
	_ = viper.ReadInConfig()
}

// loadConfig reads the config file and applies environment and flag
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	path := viper.ConfigFileUsed()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if path != "" {
		logger.Debug("using config file", "path", path)
	}

	strs := map[string]*string{
		"schedule.direction":    &cfg.Schedule.Direction,
		"schedule.spent_rollup": &cfg.Schedule.SpentRollup,
		"schedule.start":        &cfg.Schedule.Start,
		"schedule.deadline":     &cfg.Schedule.Deadline,
		"output.format":         &cfg.Output.Format,
	}
	for key, dst := range strs {
		if viper.IsSet(key) {
			*dst = viperString(key)
		}
	}
	if viper.IsSet("schedule.default_estimate") {
		cfg.Schedule.DefaultEstimate = viper.GetFloat64("schedule.default_estimate")
	}
	ints := map[string]*int{
		"schedule.max_search_days": &cfg.Schedule.MaxSearchDays,
		"schedule.max_work_days":   &cfg.Schedule.MaxWorkDays,
	}
	for key, dst := range ints {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}
	if viper.IsSet("schedule.balance_resources") {
		cfg.Schedule.BalanceResources = viper.GetBool("schedule.balance_resources")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// viperString reads key as a string. YAML dates come back from viper as
// time values and are formatted as RFC 3339.
func viperString(key string) string {
	if t, ok := viper.Get(key).(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return viper.GetString(key)
}
