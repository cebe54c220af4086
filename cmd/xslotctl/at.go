// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xslot-sdk/xslot-go/internal/hal"
	"github.com/xslot-sdk/xslot-go/pkg/attr"
)

var atCmd = &cobra.Command{
	Use:   "at <command>",
	Short: "Send one raw AT command directly to a TPMesh module",
	Long: `at drives the AT command driver directly against the configured serial
port, for bench debugging independent of a session. Give the command
without its leading "AT" prefix, matching the driver's own Submit.

Example:
  xslotctl at --port /dev/ttyUSB0 "+VER?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAt,
}

func runAt(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("at requires --port")
	}

	provider := hal.NewRealProvider()
	port, err := provider.OpenPort(portName, baudRate)
	if err != nil {
		return fmt.Errorf("open port: %w", err)
	}

	driver := attr.NewDriver(port, provider.Clock(), logger)
	driver.SetURCHandler(func(u attr.URC) {
		fmt.Printf("URC: %s\n", u.Raw)
	})

	ctx := context.Background()
	if err := driver.Start(ctx); err != nil {
		port.Close()
		return fmt.Errorf("start driver: %w", err)
	}
	defer driver.Stop()

	line := strings.TrimPrefix(args[0], "AT")
	resp, err := driver.Submit(ctx, line, attr.DefaultTimeout)
	if err != nil {
		return fmt.Errorf("AT%s: %w", line, err)
	}

	for _, l := range resp {
		fmt.Println(l)
	}
	fmt.Println("OK")
	return nil
}
