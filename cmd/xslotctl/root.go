// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	portName  string
	baudRate  uint32
	localAddr uint16
	verbose   bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "xslotctl",
	Short: "X-Slot SDK diagnostic and bench tooling",
	Long: `xslotctl is a diagnostic CLI for the X-Slot embedded SDK.

It decodes raw frames, drives the AT command set against a TPMesh module
directly, runs a live session monitor, and bridges a session's decoded
traffic to a WebSocket client for remote inspection.

This tool has no concept of a BACnet device database of its own; it
only knows about frames and sessions.`,
	Version: "0.1.0",

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		// Flags bound into viper: an explicit flag wins, then the config
		// file, then XSLOT_* env vars, then the flag default.
		portName = viper.GetString("port")
		baudRate = viper.GetUint32("baud")
		localAddr = uint16(viper.GetUint("addr"))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.xslotctl.yaml)")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "serial port device")
	rootCmd.PersistentFlags().Uint32Var(&baudRate, "baud", 115200, "baud rate")
	rootCmd.PersistentFlags().Uint16Var(&localAddr, "addr", 0xFF00, "local X-Slot address this CLI identifies as on the wire")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("baud", rootCmd.PersistentFlags().Lookup("baud"))
	viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(atCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(sessionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".xslotctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("XSLOT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
