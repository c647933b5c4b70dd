// Package server runs the TCP accept loop and per-connection
// read-decode-dispatch-reply cycle.
//
// Grounded on the teacher's internal/web/server.go allocateSmartPort (bind
// retry) for listener setup, and internal/redisx/client.go's connection
// lifecycle (buffered reads, explicit close on failure) adapted from an
// outbound client to an inbound acceptor. The per-connection rate limiter
// is grounded on internal/replica/flow_writer.go's use of
// golang.org/x/time/rate for dynamic throttling.
package server

import (
	"context"
	"net"

	"golang.org/x/time/rate"

	"redisd/internal/command"
	"redisd/internal/keyspace"
	"redisd/internal/logger"
	"redisd/internal/resp"
)

const readBufferSize = 1024

// Server owns the listener and the shared keyspace engine.
type Server struct {
	keyspace     *keyspace.Engine
	lookupConfig command.ConfigLookup
	qps          int
}

// New returns a Server ready to Serve. qps of 0 disables per-connection
// throttling.
func New(ks *keyspace.Engine, lookupConfig command.ConfigLookup, qps int) *Server {
	return &Server{keyspace: ks, lookupConfig: lookupConfig, qps: qps}
}

// Serve listens on addr and blocks, spawning one goroutine per accepted
// connection until ctx is canceled or the listener fails.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Printf("listening on %s", ln.Addr().String())
	return s.Run(ctx, ln)
}

// Run accepts connections on an already-bound listener, spawning one
// goroutine per connection until ctx is canceled or the listener fails.
// Exposed separately from Serve so callers that need the bound address
// before the accept loop starts (tests, callers reporting actual port
// after a :0 bind) can create the listener themselves.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var limiter *rate.Limiter
	if s.qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.qps), s.qps)
	}

	buf := make([]byte, readBufferSize)
	var pending []byte

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
		}
		if err != nil {
			return
		}

		for {
			v, consumed, decErr := resp.Decode(pending)
			if decErr == resp.ErrIncomplete {
				break
			}
			if decErr != nil {
				return
			}
			pending = pending[consumed:]

			if limiter != nil {
				if err := limiter.Wait(context.Background()); err != nil {
					return
				}
			}

			reply := dispatch(v, s.keyspace, s.lookupConfig)
			if _, err := conn.Write(reply); err != nil {
				return
			}
		}
	}
}

func dispatch(v resp.Value, ks *keyspace.Engine, lookupConfig command.ConfigLookup) []byte {
	cmd, err := command.Parse(v)
	if err != nil {
		return resp.ErrorReply("ERR unknown command")
	}
	return command.Apply(cmd, ks, lookupConfig)
}
