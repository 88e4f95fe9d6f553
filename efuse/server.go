// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// server exposes a fuse controller over a JSON-over-TCP control
// connection. The transport is thin glue: every command maps onto one
// of the three controller operations.
type server struct {
	ctl net.Listener

	msg    *log.Logger
	devmem string

	newController func(devmem string, opts ...Option) (*Controller, error)

	opts []Option
	dev  *Controller
}

// Serve accepts control connections on addr until ctx is done, driving
// the eFuse register window mapped from devmem.
func Serve(ctx context.Context, addr, devmem string, opts ...Option) error {
	srv, err := newServer(addr, devmem, opts...)
	if err != nil {
		return fmt.Errorf("could not create efuse server: %w", err)
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		<-ctx.Done()
		srv.close()
		return ctx.Err()
	})
	grp.Go(srv.serve)

	err = grp.Wait()
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, net.ErrClosed):
		// listener closed by the shutdown goroutine
		return nil
	}
	return err
}

func newServer(addr, devmem string, opts ...Option) (*server, error) {
	ctl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not create efuse-svc server on %q: %w", addr, err)
	}

	srv := &server{
		ctl: ctl,

		msg:    log.New(os.Stdout, "efuse-svc: ", 0),
		devmem: devmem,

		newController: NewController,

		opts: opts,
	}
	return srv, nil
}

func (srv *server) serve() error {
	defer srv.close()

	for {
		conn, err := srv.ctl.Accept()
		if err != nil {
			return fmt.Errorf("could not accept connection: %w", err)
		}

		err = srv.handle(conn)
		if err != nil {
			srv.msg.Printf("could not serve fuse session: %+v", err)
			continue
		}
	}
}

func (srv *server) handle(conn net.Conn) error {
	defer conn.Close()
	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

	srv.dev = nil
	dev, err := srv.newController(srv.devmem, srv.opts...)
	if err != nil {
		return fmt.Errorf("could not create fuse controller: %w", err)
	}
	defer dev.Close()
	srv.dev = dev

loop:
	for {
		var req struct {
			Name string           `json:"name"`
			Args *json.RawMessage `json:"args"`
		}

		err = json.NewDecoder(conn).Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			srv.msg.Printf("could not decode command request: %+v", err)
			srv.reply(conn, err, nil)
			continue
		}
		srv.msg.Printf("received request: name=%q", req.Name)

		switch strings.ToLower(req.Name) {
		case "read":
			var args struct {
				Addr uint32 `json:"addr"`
			}
			err = json.Unmarshal(*req.Args, &args)
			if err != nil {
				srv.reply(conn, err, nil)
				continue
			}

			v, err := dev.ReadShadow(args.Addr)
			if err != nil {
				srv.reply(conn, err, nil)
				continue
			}
			srv.reply(conn, nil, &reply{Value: v})

		case "write":
			var args struct {
				Addr  uint32 `json:"addr"`
				Value uint32 `json:"value"`
			}
			err = json.Unmarshal(*req.Args, &args)
			if err != nil {
				srv.reply(conn, err, nil)
				continue
			}

			err = dev.WriteWord(args.Addr, args.Value)
			srv.reply(conn, err, nil)

		case "dump":
			var args struct {
				Addr uint32 `json:"addr"`
				Size int    `json:"size"`
			}
			err = json.Unmarshal(*req.Args, &args)
			if err != nil {
				srv.reply(conn, err, nil)
				continue
			}
			if args.Size <= 0 {
				args.Size = Size
			}

			buf := make([]byte, args.Size)
			n, err := dev.ReadBuffer(args.Addr, buf)
			if err != nil {
				srv.reply(conn, err, nil)
				continue
			}
			srv.reply(conn, nil, &reply{Data: buf[:n]})

		case "quit":
			srv.reply(conn, nil, nil)
			break loop

		default:
			srv.reply(conn, fmt.Errorf("unknown command %q", req.Name), nil)
		}
	}

	return nil
}

type reply struct {
	Msg   string `json:"msg"`
	Value uint32 `json:"value,omitempty"`
	Data  []byte `json:"data,omitempty"`
}

func (srv *server) reply(conn net.Conn, err error, rep *reply) {
	if rep == nil {
		rep = &reply{}
	}
	rep.Msg = "ok"
	if err != nil {
		rep.Msg = fmt.Sprintf("%+v", err)
	}

	_ = json.NewEncoder(conn).Encode(rep)
}

func (srv *server) close() {
	_ = srv.ctl.Close()
}
