// Package cmd implements the einvoice-tracker command.
package cmd

import (
	"strings"
	_ "time/tzdata" // portal timezone in minimal images

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "einvoice-tracker",
	Short: "Watch a carrier e-invoice account for new invoices",
	Long: "einvoice-tracker logs in to the e-invoice portal on a randomized interval,\n" +
		"lists the invoices of the current month, categorizes and describes the new\n" +
		"ones, records them and announces each one to the configured channels.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	Args:          cobra.NoArgs,
	RunE:          runTracker,
}

// Root returns the root cobra command.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().String("config", "config.yaml", "config file path (env EINVOICE_CONFIG)")
	cobra.CheckErr(viper.BindPFlag("config", rootCmd.Flags().Lookup("config")))
}

func initConfig() {
	viper.SetEnvPrefix("EINVOICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// configPath resolves the config file from the flag, then EINVOICE_CONFIG,
// then the flag default.
func configPath() string {
	return viper.GetString("config")
}
