// Command eventharvest harvests public events from Facebook listings. It can
// scrape once from the command line, serve the harvest REST API, or mint
// service tokens for that API.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "eventharvest",
	Short:         "Harvest public events from Facebook listings",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is ./eventharvest.yaml if present)")
	rootCmd.PersistentFlags().String("environment", "development", "development or production, controls log verbosity")

	rootCmd.AddCommand(scrapeCommand())
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(tokenCommand())
}

func main() {
	// Variables from .env never override the real environment.
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "eventharvest:", err)
		os.Exit(1)
	}
}

// initConfig binds the flags of cmd to viper so every flag can also be set
// as a HARVEST_* environment variable or in the config file. Flags win over
// the environment, which wins over the file.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("HARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		viper.SetConfigName("eventharvest")
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}

	return nil
}

func newLogger() (*zap.Logger, error) {
	if viper.GetString("environment") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
