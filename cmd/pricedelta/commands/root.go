package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pricedelta",
	Short: "pricedelta - 미국 주식 기간별 등락률 갱신",
	Long: `pricedelta Unified CLI

Alpha Vantage 일봉으로 종목별 등락률(당일, 1일, 1주, 1개월, 연초 대비)을
계산하고 PostgreSQL에 일괄 저장합니다.

Usage:
  go run ./cmd/pricedelta [command]

Examples:
  go run ./cmd/pricedelta api
  go run ./cmd/pricedelta update AAPL MSFT
  go run ./cmd/pricedelta fetch IBM --raw
  go run ./cmd/pricedelta seed
  go run ./cmd/pricedelta scheduler start`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return nil
		}
		if err := godotenv.Load(configFile); err != nil {
			return fmt.Errorf("load config file %s: %w", configFile, err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
