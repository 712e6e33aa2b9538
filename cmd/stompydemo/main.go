// Command stompydemo is a runnable example transport binding the stompy
// core (stompparser, stompcmd, stompsess, stompfailover) to a real TCP
// connection. It exists to demonstrate logging, error wrapping,
// configuration and failover dialing around a core that otherwise performs
// no I/O and never logs. On transport loss it exits rather than
// reconnecting. No core package imports this one.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stompfailover"
	"github.com/maleck13/stompy/stompsess"
	"github.com/maleck13/stompy/stompspec"
)

func main() {
	log, err := makeLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("stompydemo exited with error", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	failoverURI, err := stompfailover.Parse(cfg.URI)
	if err != nil {
		return errors.Wrap(err, "parsing failover uri")
	}
	gen := stompfailover.New(failoverURI)

	conn, endpoint, err := dial(log, gen, cfg.DialTimeout)
	if err != nil {
		return errors.Wrap(err, "connecting to broker")
	}
	defer conn.Close()
	log.Info("connected to broker", zap.String("host", endpoint.Host), zap.Int("port", endpoint.Port))

	tr := newTransport(conn, log)
	session := stompsess.New(stompsess.Config{
		URI:      cfg.URI,
		Versions: cfg.versions(),
		Login:    cfg.Login,
		Passcode: cfg.Passcode,
		Host:     cfg.Host,
	})

	if err := handshake(tr, session); err != nil {
		return errors.Wrap(err, "stomp handshake")
	}
	log.Info("stomp session established", zap.String("version", string(session.Version())), zap.String("server-id", session.ServerID()))

	subFrame, err := session.Subscribe(cfg.Destination, nil)
	if err != nil {
		return errors.Wrap(err, "subscribing")
	}
	if err := tr.send(subFrame); err != nil {
		return errors.Wrap(err, "sending subscribe frame")
	}
	log.Info("subscribed", zap.String("destination", cfg.Destination))

	frames := make(chan stompy.Frame)
	errs := make(chan error, 1)
	go tr.readLoop(frames, errs)

	for {
		select {
		case <-ctx.Done():
			return shutdown(log, tr, session)
		case err := <-errs:
			session.TransportLost()
			return errors.Wrap(err, "transport failed")
		case f := <-frames:
			dispatch(log, tr, session, f)
		}
	}
}

// handshake drives the synchronous CONNECT/CONNECTED exchange. It's the
// one place this binary blocks on raw reads before the background
// readLoop takes over.
func handshake(tr *transport, session *stompsess.Session) error {
	connectFrame, err := session.Connect()
	if err != nil {
		return err
	}
	if err := tr.send(connectFrame); err != nil {
		return err
	}

	reply, err := tr.readFrame()
	if err != nil {
		return err
	}
	if reply.Command == stompspec.ERROR {
		session.Error(reply)
		message, _ := reply.Header(stompspec.HeaderMessage)
		return errors.New("broker refused connection: " + message)
	}
	if err := session.Connected(reply); err != nil {
		return err
	}
	tr.setVersion(session.Version())
	return nil
}

// dispatch routes one inbound frame to the Session and logs the outcome.
// There's no per-subscription handler registry here; this demo only
// proves the wiring rather than reimplementing a full pub/sub API.
func dispatch(log *zap.Logger, tr *transport, session *stompsess.Session, f stompy.Frame) {
	switch f.Command {
	case stompspec.MESSAGE:
		if err := session.Message(f); err != nil {
			log.Warn("invalid MESSAGE frame", zap.Error(err))
			return
		}
		destination, _ := f.Header(stompspec.HeaderDestination)
		log.Info("received message", zap.String("destination", destination), zap.ByteString("body", f.Body))
		ack, err := session.Ack(stompsess.RefFromFrame(f))
		if err != nil {
			log.Warn("failed to build ack frame", zap.Error(err))
			return
		}
		if err := tr.send(ack); err != nil {
			log.Warn("failed to send ack frame", zap.Error(err))
		}
	case stompspec.RECEIPT:
		if err := session.Receipt(f); err != nil {
			log.Warn("unexpected receipt", zap.Error(err))
		}
	case stompspec.ERROR:
		if err := session.Error(f); err != nil {
			log.Warn("invalid ERROR frame", zap.Error(err))
		}
		message, _ := f.Header(stompspec.HeaderMessage)
		log.Error("broker reported error", zap.String("message", message))
	default:
		log.Warn("unexpected frame", zap.String("command", f.Command))
	}
}

func shutdown(log *zap.Logger, tr *transport, session *stompsess.Session) error {
	log.Info("shutting down, sending disconnect")
	f, err := session.Disconnect("shutdown")
	if err != nil {
		return errors.Wrap(err, "building disconnect frame")
	}
	if err := tr.send(f); err != nil {
		return errors.Wrap(err, "sending disconnect frame")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		reply, err := tr.readFrame()
		if err != nil {
			break
		}
		if reply.Command == stompspec.RECEIPT {
			session.Receipt(reply)
			break
		}
	}
	session.Timeout()
	return nil
}
