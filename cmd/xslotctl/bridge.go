// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package main

import (
	"bufio"
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xslot-sdk/xslot-go/internal/hal"
	"github.com/xslot-sdk/xslot-go/pkg/bacnet"
	"github.com/xslot-sdk/xslot-go/pkg/frame"
	"github.com/xslot-sdk/xslot-go/pkg/message"
	"github.com/xslot-sdk/xslot-go/pkg/session"
)

var (
	bridgeListen   string
	bridgeUsername string
	bridgeDirect   bool
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run a session and serve its decoded traffic over WebSocket",
	Long: `bridge starts a session over the configured serial port and runs a
WebSocket server. Every connected client receives one binary WebSocket
message per REPORT, WRITE, QUERY or RESPONSE the session receives,
re-encoded from the decoded upcall: FROM, TO, CMD and the objects or
payload are kept, SEQ is always 0, and reports are re-encoded in the
incremental format, so their flags and exact object types are not kept.
Clients are read-only: frames they send are logged and dropped.

When --username is given, the password is read from the XSLOT_PASSWORD
environment variable, or prompted for interactively, and HTTP Basic auth
is required on the upgrade request.`,
	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeListen, "listen", ":8088", "HTTP listen address")
	bridgeCmd.Flags().StringVar(&bridgeUsername, "username", "", "require HTTP Basic auth with this username")
	bridgeCmd.Flags().BoolVar(&bridgeDirect, "direct", false, "skip the TPMesh probe and start straight into Direct mode")
}

// getBridgePassword retrieves the bridge's Basic auth password from the
// environment or prompts for it interactively, hiding terminal input.
func getBridgePassword() (string, error) {
	if pw := os.Getenv("XSLOT_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(line), nil
	}
	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

type bridgeHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newBridgeHub() *bridgeHub {
	return &bridgeHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *bridgeHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *bridgeHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *bridgeHub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.BinaryMessage, data); err != nil {
			c.Close()
			delete(h.clients, c)
		}
	}
}

var bridgeUpgrader = websocket.Upgrader{
	ReadBufferSize:  frame.MaxFrameSize,
	WriteBufferSize: frame.MaxFrameSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func basicAuthMiddleware(username, password string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="xslotctl"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func runBridge(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("bridge requires --port")
	}

	cfg := session.Config{
		LocalAddr:    localAddr,
		UARTPort:     portName,
		UARTBaudRate: baudRate,
		ForceDirect:  bridgeDirect,
	}

	sess := session.New(cfg, hal.NewRealProvider(), logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		logger.Warn("session started with a degraded transport", "error", err)
	}
	defer sess.Stop()

	hub := newBridgeHub()

	sess.OnReport(func(from uint16, objs []bacnet.Object) {
		f, err := message.BuildReport(from, localAddr, 0, objs, true)
		if err != nil {
			return
		}
		rebroadcastFrame(hub, f)
	})
	sess.OnWrite(func(from uint16, obj bacnet.Object) {
		f, err := message.BuildWrite(from, localAddr, 0, obj)
		if err != nil {
			return
		}
		rebroadcastFrame(hub, f)
	})
	sess.OnRawData(func(from uint16, cmd frame.Command, payload []byte) {
		rebroadcastFrame(hub, frame.Frame{From: from, To: localAddr, Cmd: cmd, Data: payload})
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := bridgeUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		hub.add(conn)
		defer func() {
			hub.remove(conn)
			conn.Close()
		}()

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			// Clients are read-only observers of the bridged session;
			// anything they send is decoded for the log and dropped.
			if f, err := frame.Decode(data); err != nil {
				logger.Debug("client sent an undecodable frame", "error", err)
			} else {
				logger.Debug("client frame ignored", "from", f.From, "cmd", f.Cmd)
			}
		}
	})

	var topHandler http.Handler = handler
	if bridgeUsername != "" {
		password, err := getBridgePassword()
		if err != nil {
			return err
		}
		topHandler = basicAuthMiddleware(bridgeUsername, password, handler)
	}

	mux := http.NewServeMux()
	mux.Handle("/", topHandler)

	fmt.Printf("xslotctl bridge listening on %s (mode=%s)\n", bridgeListen, sess.Mode())
	return http.ListenAndServe(bridgeListen, mux)
}

func rebroadcastFrame(hub *bridgeHub, f frame.Frame) {
	buf := make([]byte, frame.MaxFrameSize)
	n, err := frame.Encode(f, buf)
	if err != nil {
		return
	}
	hub.broadcast(buf[:n])
}
