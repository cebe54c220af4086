// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xslot-sdk/xslot-go/internal/hal"
	"github.com/xslot-sdk/xslot-go/pkg/session"
)

var (
	sessionDumpWaitMs int
	sessionDumpOut    string
	forceDirect       bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Session-level diagnostics",
}

var sessionDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Start a session, let it settle, and export a CBOR diagnostic snapshot",
	Long: `dump starts a session over the configured port, probing TPMesh then
Direct the same way the SDK does internally, waits briefly for inbound
traffic to populate the node table, then writes a CBOR-encoded snapshot
of the session's mode, node table, and transport health counters.`,
	RunE: runSessionDump,
}

func init() {
	sessionDumpCmd.Flags().IntVar(&sessionDumpWaitMs, "wait", 2000, "milliseconds to let the session run before snapshotting")
	sessionDumpCmd.Flags().StringVarP(&sessionDumpOut, "out", "o", "", "write the CBOR snapshot here instead of stdout")
	sessionDumpCmd.Flags().BoolVar(&forceDirect, "direct", false, "skip the TPMesh probe and start straight into Direct mode")
	sessionCmd.AddCommand(sessionDumpCmd)
}

func runSessionDump(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("session dump requires --port")
	}

	cfg := session.Config{
		LocalAddr:    localAddr,
		UARTPort:     portName,
		UARTBaudRate: baudRate,
		ForceDirect:  forceDirect,
	}

	sess := session.New(cfg, hal.NewRealProvider(), logger)
	ctx := context.Background()
	if err := sess.Start(ctx); err != nil {
		logger.Warn("session started with a degraded transport", "error", err)
	}
	defer sess.Stop()

	time.Sleep(time.Duration(sessionDumpWaitMs) * time.Millisecond)

	data, err := sess.Snapshot().CBOR()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if sessionDumpOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(sessionDumpOut, data, 0o644)
}
