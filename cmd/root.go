/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rotblauer/aistraj/common"
)

var optLogLevel string

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "aistraj",
	Short: "Annotate vessel position reports with mobility events",
	Long: `aistraj reads a stream of raw position reports (object id,
longitude, latitude, unix timestamp) and annotates each point with the
mobility events its arrival reveals: stops, speed changes, slow-motion
legs, communication gaps, and heading changes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if err := level.UnmarshalText([]byte(optLogLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", optLogLevel, err)
		}
		common.SlogResetLevel(level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&optLogLevel, "log-level", "INFO",
		"Log level: DEBUG, INFO, WARN, or ERROR.")
}
