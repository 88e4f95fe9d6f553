// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-cvi/otp/internal/fusesim"
)

func newTestServer(t *testing.T, sim *fusesim.Macro) *server {
	t.Helper()

	srv, err := newServer(":0", "", WithRegIO(sim))
	if err != nil {
		t.Fatalf("could not create efuse server: %+v", err)
	}
	srv.msg = log.New(io.Discard, "efuse-svc: ", 0)

	go func() { _ = srv.serve() }()
	t.Cleanup(srv.close)

	return srv
}

func request(t *testing.T, conn net.Conn, req string) reply {
	t.Helper()

	_, err := conn.Write([]byte(req))
	if err != nil {
		t.Fatalf("could not send request %s: %+v", req, err)
	}

	var rep reply
	err = json.NewDecoder(conn).Decode(&rep)
	if err != nil {
		t.Fatalf("could not decode reply to %s: %+v", req, err)
	}
	return rep
}

func TestServer(t *testing.T) {
	sim := fusesim.New(2)
	srv := newTestServer(t, sim)

	conn, err := net.Dial("tcp", srv.ctl.Addr().String())
	if err != nil {
		t.Fatalf("could not dial efuse server: %+v", err)
	}
	defer conn.Close()

	rep := request(t, conn, `{"name": "write", "args": {"addr": 4, "value": 3735928559}}`)
	if got, want := rep.Msg, "ok"; got != want {
		t.Fatalf("invalid write reply: got=%q, want=%q", got, want)
	}

	rep = request(t, conn, `{"name": "read", "args": {"addr": 4}}`)
	if got, want := rep.Msg, "ok"; got != want {
		t.Fatalf("invalid read reply: got=%q, want=%q", got, want)
	}
	if got, want := rep.Value, uint32(0xdeadbeef); got != want {
		t.Fatalf("invalid read value: got=0x%08x, want=0x%08x", got, want)
	}

	rep = request(t, conn, `{"name": "dump", "args": {"addr": 0, "size": 0}}`)
	if got, want := rep.Msg, "ok"; got != want {
		t.Fatalf("invalid dump reply: got=%q, want=%q", got, want)
	}
	if got, want := len(rep.Data), Size; got != want {
		t.Fatalf("invalid dump length: got=%d, want=%d", got, want)
	}
	want := make([]byte, Size)
	copy(want[4:], []byte{0xef, 0xbe, 0xad, 0xde})
	if !bytes.Equal(rep.Data, want) {
		t.Fatalf("invalid dump contents:\ngot= %x\nwant=%x", rep.Data, want)
	}

	rep = request(t, conn, `{"name": "read", "args": {"addr": 3}}`)
	if got := rep.Msg; got == "ok" || !strings.Contains(got, "aligned") {
		t.Fatalf("invalid misaligned-read reply: got=%q", got)
	}

	rep = request(t, conn, `{"name": "frobnicate"}`)
	if got, want := rep.Msg, `unknown command "frobnicate"`; got != want {
		t.Fatalf("invalid unknown-command reply: got=%q, want=%q", got, want)
	}

	rep = request(t, conn, `{"name": "quit"}`)
	if got, want := rep.Msg, "ok"; got != want {
		t.Fatalf("invalid quit reply: got=%q, want=%q", got, want)
	}
}

func TestServerSharedMacro(t *testing.T) {
	sim := fusesim.New(2)
	srv := newTestServer(t, sim)

	addr := srv.ctl.Addr().String()

	// first session burns a word
	func() {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("could not dial efuse server: %+v", err)
		}
		defer conn.Close()

		rep := request(t, conn, `{"name": "write", "args": {"addr": 8, "value": 255}}`)
		if got, want := rep.Msg, "ok"; got != want {
			t.Fatalf("invalid write reply: got=%q, want=%q", got, want)
		}
		rep = request(t, conn, `{"name": "quit"}`)
		if got, want := rep.Msg, "ok"; got != want {
			t.Fatalf("invalid quit reply: got=%q, want=%q", got, want)
		}
	}()

	// fuses are permanent, the next session sees the burn
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("could not dial efuse server: %+v", err)
	}
	defer conn.Close()

	rep := request(t, conn, `{"name": "read", "args": {"addr": 8}}`)
	if got, want := rep.Msg, "ok"; got != want {
		t.Fatalf("invalid read reply: got=%q, want=%q", got, want)
	}
	if got, want := rep.Value, uint32(0xff); got != want {
		t.Fatalf("invalid read value: got=0x%08x, want=0x%08x", got, want)
	}
}

func TestServeCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- Serve(ctx, "localhost:0", "", WithRegIO(fusesim.New(2)))
	}()

	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("could not stop efuse server: %+v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("efuse server did not stop on context cancellation")
	}
}
