// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package attr

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	"github.com/xslot-sdk/xslot-go/internal/haltest"
	"github.com/xslot-sdk/xslot-go/pkg/xserr"
)

func newTestDriver(t *testing.T) (*Driver, *haltest.Port) {
	t.Helper()
	local, remote := haltest.NewPort()
	clock := &haltest.Clock{}
	d := NewDriver(local, clock, nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d, remote
}

// respondOK reads one line written by the driver off remote and replies OK.
func respondOK(t *testing.T, remote *haltest.Port) string {
	t.Helper()
	r := bufio.NewReader(remote)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("reading command: %v", err)
	}
	if _, err := remote.Write([]byte("OK\r\n")); err != nil {
		t.Fatalf("writing OK: %v", err)
	}
	return line
}

func TestDriver_SubmitSuccess(t *testing.T) {
	d, remote := newTestDriver(t)

	done := make(chan struct{})
	var cmdLine string
	go func() {
		cmdLine = respondOK(t, remote)
		close(done)
	}()

	_, err := d.Submit(context.Background(), "", time.Second)
	<-done
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if cmdLine != "AT\r\n" {
		t.Fatalf("command line = %q, want %q", cmdLine, "AT\r\n")
	}
}

func TestDriver_SubmitError(t *testing.T) {
	d, remote := newTestDriver(t)

	go func() {
		r := bufio.NewReader(remote)
		r.ReadString('\n')
		remote.Write([]byte("ERROR\r\n"))
	}()

	_, err := d.Submit(context.Background(), "+BAD", time.Second)
	if err == nil {
		t.Fatal("expected error on ERROR response")
	}
}

func TestDriver_SubmitAccumulatesResponseLines(t *testing.T) {
	d, remote := newTestDriver(t)

	go func() {
		r := bufio.NewReader(remote)
		r.ReadString('\n')
		remote.Write([]byte("1.2.3\r\n"))
		remote.Write([]byte("OK\r\n"))
	}()

	resp, err := d.Submit(context.Background(), "+VER?", time.Second)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(resp) != 1 || resp[0] != "1.2.3" {
		t.Fatalf("resp = %v, want [1.2.3]", resp)
	}
}

func TestDriver_SubmitTimeout(t *testing.T) {
	d, remote := newTestDriver(t)
	// Drain the command bytes so the pipe write completes; never answer.
	go io.Copy(io.Discard, remote)
	_, err := d.Submit(context.Background(), "+SLOW", 20*time.Millisecond)
	if xserr.CodeOf(err) != xserr.Timeout {
		t.Fatalf("error code = %v, want Timeout", xserr.CodeOf(err))
	}
}

func TestDriver_SubmitWhileBusyReturnsBusy(t *testing.T) {
	d, remote := newTestDriver(t)
	// Drain the first command's bytes so it reaches WAITING_RESPONSE.
	go io.Copy(io.Discard, remote)

	ctx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		d.Submit(ctx, "+FIRST", time.Second)
		close(firstDone)
	}()
	time.Sleep(10 * time.Millisecond)

	_, err := d.Submit(context.Background(), "+SECOND", time.Second)
	cancel()
	<-firstDone
	if xserr.CodeOf(err) != xserr.Busy {
		t.Fatalf("error code = %v, want Busy", xserr.CodeOf(err))
	}
}

func TestDriver_TimeoutLeavesDriverIdle(t *testing.T) {
	d, remote := newTestDriver(t)

	go func() {
		r := bufio.NewReader(remote)
		r.ReadString('\n') // +SLOW: left unanswered so it times out
		r.ReadString('\n')
		remote.Write([]byte("OK\r\n"))
	}()

	_, err := d.Submit(context.Background(), "+SLOW", 20*time.Millisecond)
	if xserr.CodeOf(err) != xserr.Timeout {
		t.Fatalf("error code = %v, want Timeout", xserr.CodeOf(err))
	}

	if _, err := d.Submit(context.Background(), "", time.Second); err != nil {
		t.Fatalf("Submit after timeout should succeed once idle: %v", err)
	}
}

func TestDriver_URCDispatchedWhileIdle(t *testing.T) {
	d, remote := newTestDriver(t)

	received := make(chan URC, 1)
	d.SetURCHandler(func(u URC) { received <- u })

	remote.Write([]byte("+NNMI:FFBE,FFFE,-40,2,AABB\r\n"))

	select {
	case u := <-received:
		if u.Kind != URCNNMI {
			t.Fatalf("Kind = %v, want URCNNMI", u.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for URC dispatch")
	}
}

func TestDriver_BareOKDoesNotMatchSendOK(t *testing.T) {
	d, remote := newTestDriver(t)

	go func() {
		r := bufio.NewReader(remote)
		r.ReadString('\n')
		// A +SEND:...,SEND OK line must not satisfy WAITING_RESPONSE.
		remote.Write([]byte("+SEND:1,SEND OK\r\n"))
		time.Sleep(5 * time.Millisecond)
		remote.Write([]byte("OK\r\n"))
	}()

	_, err := d.Submit(context.Background(), "+SEND=FFBE,1,AA,0", time.Second)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
}
