// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

// xslotctl is a diagnostic CLI for the X-Slot embedded SDK: decode raw
// frames, drive the AT command set directly, watch a live session, and
// bridge a session's traffic to a WebSocket client.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
