// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xslot-sdk/xslot-go/pkg/bacnet"
	"github.com/xslot-sdk/xslot-go/pkg/frame"
	"github.com/xslot-sdk/xslot-go/pkg/message"
)

var decodeFile string

var decodeCmd = &cobra.Command{
	Use:   "decode [hex]",
	Short: "Decode and pretty-print one raw X-Slot frame",
	Long: `decode parses a single X-Slot wire frame and prints its header fields
and, where the command carries a known payload, its decoded objects.

The frame bytes can be given as a hex string argument or read from a
binary file with --file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVar(&decodeFile, "file", "", "read raw frame bytes from this file instead of a hex argument")
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := readFrameBytes(args, decodeFile)
	if err != nil {
		return err
	}

	f, err := frame.Decode(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	fmt.Printf("FROM=0x%04X TO=0x%04X SEQ=%d CMD=%s LEN=%d\n", f.From, f.To, f.Seq, f.Cmd, len(f.Data))
	printPayload(f)
	return nil
}

func readFrameBytes(args []string, file string) ([]byte, error) {
	if file != "" {
		return os.ReadFile(file)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("decode requires a hex argument or --file")
	}
	clean := strings.TrimPrefix(strings.ReplaceAll(args[0], " ", ""), "0x")
	return hex.DecodeString(clean)
}

func printPayload(f frame.Frame) {
	switch f.Cmd {
	case frame.Report:
		objs, err := message.ParseReport(f.Data, 64)
		if err != nil {
			fmt.Printf("  (report payload: %v)\n", err)
			return
		}
		printObjects(objs)

	case frame.Response:
		objs, err := message.ParseResponse(f.Data, 64)
		if err != nil {
			fmt.Printf("  (response payload: %v)\n", err)
			return
		}
		printObjects(objs)

	case frame.Query:
		ids, err := message.ParseQuery(f.Data, 64)
		if err != nil {
			fmt.Printf("  (query payload: %v)\n", err)
			return
		}
		fmt.Printf("  object ids: %v\n", ids)

	case frame.Write:
		obj, err := message.ParseWrite(f.Data)
		if err != nil {
			fmt.Printf("  (write payload: %v)\n", err)
			return
		}
		printObjects([]bacnet.Object{obj})

	case frame.WriteAck:
		status, err := message.ParseWriteAck(f.Data)
		if err != nil {
			fmt.Printf("  (write-ack payload: %v)\n", err)
			return
		}
		fmt.Printf("  status=%d\n", status)

	default:
		if len(f.Data) > 0 {
			fmt.Printf("  data: % X\n", f.Data)
		}
	}
}

func printObjects(objs []bacnet.Object) {
	for _, o := range objs {
		fmt.Printf("  id=%d type=%s flags=0x%02X value=%v\n", o.ID, o.Type, o.Flags, o.Value)
	}
}
