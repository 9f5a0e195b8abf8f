package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cspmfeed",
	Short: "CSPM live security-event feed",
	Long: `cspmfeed runs the live security-event feed engine for the CSPM
dashboard: it polls the scoring backend (or simulates one), maintains the
resident record set and aggregate statistics, and serves the filtered,
sorted view over HTTP or straight to your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./cspmfeed.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg, _ = config.Load("")
	}
}
