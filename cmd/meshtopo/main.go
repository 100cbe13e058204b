// Command meshtopo builds structured hexahedral meshes, derives their
// tetrahedral decomposition and computes bandwidth reducing renumberings.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soypat/meshtopo"
)

var (
	cfgFile string
	logger  = meshtopo.NoopLogger()
	rootCmd = &cobra.Command{
		Use:   "meshtopo",
		Short: "Mesh topology maintenance tools",
		Long: `meshtopo edits mesh topologies and keeps derived data in step.

Meshes are generated as hexahedral lattices over a box. Flags can also be set
in a config file (--config) or through MESHTOPO_ prefixed environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return initLogger()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file (default: stdout)")
	rootCmd.PersistentFlags().Bool("check", false, "Enable consistency checks after every edit")

	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("check", rootCmd.PersistentFlags().Lookup("check"))

	rootCmd.AddCommand(decomposeCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() error {
	viper.SetEnvPrefix("MESHTOPO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", cfgFile, err)
	}
	return nil
}

func initLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", viper.GetString("log-level"), err)
	}
	switch format := viper.GetString("log-format"); format {
	case "text":
		logger = meshtopo.NewTextLogger(os.Stderr, level)
	case "json":
		logger = meshtopo.NewJSONLogger(os.Stderr, level)
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
