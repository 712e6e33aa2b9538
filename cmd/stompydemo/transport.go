package main

import (
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stompfailover"
	"github.com/maleck13/stompy/stompparser"
	"github.com/maleck13/stompy/stompspec"
)

// transport binds the non-blocking, I/O-free core (Parser/Compiler) to a
// real net.Conn. Nothing in stompy/stompparser/stompcmd/stompsess/
// stompfailover performs I/O, so this is where it lives.
type transport struct {
	conn     net.Conn
	parser   *stompparser.Parser
	compiler *stompparser.Compiler
	log      *zap.Logger
}

func dial(log *zap.Logger, gen *stompfailover.Generator, timeout time.Duration) (net.Conn, stompfailover.Endpoint, error) {
	for {
		ep, delay, err := gen.Next()
		if err != nil {
			return nil, stompfailover.Endpoint{}, errors.Wrap(err, "failover attempts exhausted")
		}
		if delay > 0 {
			log.Info("waiting before reconnect attempt", zap.Duration("delay", delay), zap.String("host", ep.Host), zap.Int("port", ep.Port))
			time.Sleep(delay)
		}
		addr := fmt.Sprintf("%s:%d", ep.Host, ep.Port)
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			log.Warn("dial failed, trying next endpoint", zap.String("addr", addr), zap.Error(err))
			continue
		}
		gen.MarkConnected()
		return conn, ep, nil
	}
}

func newTransport(conn net.Conn, log *zap.Logger) *transport {
	return &transport{
		conn:     conn,
		parser:   stompparser.New(stompspec.DefaultVersion),
		compiler: stompparser.NewCompiler(stompspec.DefaultVersion),
		log:      log,
	}
}

// setVersion updates both halves of the codec once the Session negotiates
// a version.
func (t *transport) setVersion(v stompspec.Version) {
	t.parser.SetVersion(v)
	t.compiler = stompparser.NewCompiler(v)
}

// send compiles f and writes it to the wire in one call.
func (t *transport) send(f stompy.Frame) error {
	wire, err := t.compiler.Compile(f)
	if err != nil {
		return errors.Wrap(err, "compiling outbound frame")
	}
	if _, err := t.conn.Write(wire); err != nil {
		return errors.Wrap(err, "writing frame to connection")
	}
	return nil
}

// readFrame blocks on the connection until the parser has a complete frame
// queued, feeding it raw chunks as they arrive. It is used for the
// synchronous CONNECT/CONNECTED handshake; once connected, readLoop takes
// over with the same parser instance.
func (t *transport) readFrame() (stompy.Frame, error) {
	for {
		if f, ok := t.parser.Get(); ok {
			return f, nil
		}
		buf := make([]byte, 4096)
		n, err := t.conn.Read(buf)
		if err != nil {
			return stompy.Frame{}, errors.Wrap(err, "reading from connection")
		}
		if err := t.parser.Add(buf[:n]); err != nil {
			return stompy.Frame{}, errors.Wrap(err, "parsing incoming bytes")
		}
	}
}

// readLoop feeds every subsequent frame onto frames until the connection
// fails or the caller closes it, at which point it reports the failure on
// errs and returns.
func (t *transport) readLoop(frames chan<- stompy.Frame, errs chan<- error) {
	for {
		f, err := t.readFrame()
		if err != nil {
			errs <- err
			return
		}
		if f.IsHeartBeat() {
			t.log.Debug("received heartbeat")
			continue
		}
		frames <- f
	}
}
