package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"faculty-availability-backend/config"
)

const programName = "facultyd"

var configFile string

func main() {
	log.SetPrefix(programName + " ")
	log.SetFlags(log.LstdFlags)

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Faculty availability status board",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.FromContext(cmd.Context()))
		},
	}

	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", os.Getenv("CONFIG_PATH"), "path to config file (env CONFIG_PATH)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
			log.Printf("failed to set GOMAXPROCS: %v", err)
		}

		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration from %q: %w", configFile, err)
		}
		if configFile != "" {
			log.Printf("configuration loaded successfully from %s", configFile)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(watchCommand())
	rootCmd.AddCommand(statusCodesCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
