// Package netserver is the external collaborator that accepts TCP
// connections, decodes a minimal line protocol into internal/dispatch
// Commands, and writes back textual Responses. It is explicitly outside
// the tested storage/execution core (SPEC_FULL.md §1/§6): the core only
// ever sees typed dispatch.Command values.
package netserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"coredb/internal/dispatch"
)

// Server accepts connections on a TCP listener and dispatches one
// command at a time per connection, admitting at most maxConnections
// concurrent connections (256 unless set with WithMaxConnections).
type Server struct {
	addr           string
	dispatcher     *dispatch.Dispatcher
	logger         *zap.Logger
	maxConnections int64
}

// Option customizes a Server.
type Option func(*Server)

// WithMaxConnections bounds the number of connections served
// concurrently; additional connections are accepted and immediately
// told to retry later.
func WithMaxConnections(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxConnections = n
		}
	}
}

// New builds a Server that listens on addr (e.g. ":5432") and dispatches
// decoded commands to d.
func New(addr string, d *dispatch.Dispatcher, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{addr: addr, dispatcher: d, logger: logger, maxConnections: 256}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run listens and serves connections until ctx is cancelled or an
// os.Interrupt is received, whichever comes first, then drains
// in-flight connections before returning.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	defer ln.Close()

	s.logger.Info("server listening", zap.String("addr", s.addr))

	group, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(s.maxConnections)

	group.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	group.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			if !sem.TryAcquire(1) {
				writeLine(conn, "ERR 503 too many connections")
				conn.Close()
				continue
			}
			connID := uuid.NewString()
			group.Go(func() error {
				defer sem.Release(1)
				s.serve(gctx, connID, conn)
				return nil
			})
		}
	})

	if err := group.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Server) serve(ctx context.Context, connID string, conn net.Conn) {
	defer conn.Close()
	logger := s.logger.With(zap.String("conn", connID))
	logger.Info("connection opened")
	defer logger.Info("connection closed")

	// Unblock a pending read once ctx is cancelled so the loop below can
	// return; a command already being dispatched still gets its reply.
	stopAfter := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stopAfter()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, err := parseCommand(line)
		if err != nil {
			writeLine(conn, "ERR 400 "+err.Error())
			continue
		}
		resp := s.dispatcher.Dispatch(cmd)
		writeLine(conn, formatResponse(resp))
	}
}

func writeLine(w interface{ Write([]byte) (int, error) }, line string) {
	_, _ = w.Write([]byte(line + "\n"))
}
