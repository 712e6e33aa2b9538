// Package stompcmd is a stateless library of pure functions, one per
// protocol verb, that build outbound Frames and validate inbound ones.
// It doesn't depend on stompsess, so it's unit testable on its own and
// reusable by a different session implementation if one ever shows up.
package stompcmd

import (
	"strings"

	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stomperr"
	"github.com/maleck13/stompy/stompspec"
)

// reserved names headers a caller must not set themselves, because the
// builder already owns them.
var reserved = map[string][]string{
	stompspec.SEND:        {stompspec.HeaderDestination, stompspec.HeaderMessageID},
	stompspec.SUBSCRIBE:   {stompspec.HeaderDestination, stompspec.HeaderID},
	stompspec.UNSUBSCRIBE:  {stompspec.HeaderID},
	stompspec.CONNECT:     {stompspec.HeaderAcceptVersion, stompspec.HeaderLogin, stompspec.HeaderPasscode, stompspec.HeaderHost},
	stompspec.BEGIN:       {stompspec.HeaderTransaction},
	stompspec.COMMIT:      {stompspec.HeaderTransaction},
	stompspec.ABORT:       {stompspec.HeaderTransaction},
	stompspec.ACK:         {stompspec.HeaderMessageID, stompspec.HeaderSubscription},
	stompspec.NACK:        {stompspec.HeaderMessageID, stompspec.HeaderSubscription},
}

func isReserved(command, name string) bool {
	for _, r := range reserved[command] {
		if r == name {
			return true
		}
	}
	return false
}

// mergeExtra appends caller-supplied extension headers, skipping anything
// the builder already owns. Vendor-prefixed headers like "x-foo" pass
// through untouched.
func mergeExtra(f *stompy.Frame, command string, extra []stompy.HeaderEntry) {
	for _, h := range extra {
		if isReserved(command, h.Name) {
			continue
		}
		f.AddHeader(h.Name, h.Value)
	}
}

// Connect builds a CONNECT frame. A bare {1.0} request omits
// accept-version entirely; anything else emits it as a comma-separated
// list in the order given.
func Connect(login, passcode, host string, versions []stompspec.Version, extra []stompy.HeaderEntry) stompy.Frame {
	f := stompy.NewFrame(stompspec.CONNECT, nil, nil)
	if login != "" {
		f.AddHeader(stompspec.HeaderLogin, login)
	}
	if passcode != "" {
		f.AddHeader(stompspec.HeaderPasscode, passcode)
	}
	if host != "" {
		f.AddHeader(stompspec.HeaderHost, host)
	}
	if len(versions) > 1 || (len(versions) == 1 && versions[0] != stompspec.VERSION_1_0) {
		names := make([]string, len(versions))
		for i, v := range versions {
			names[i] = string(v)
		}
		f.AddHeader(stompspec.HeaderAcceptVersion, strings.Join(names, ","))
	}
	mergeExtra(&f, stompspec.CONNECT, extra)
	return f
}

// Send builds a SEND frame. content-length isn't set here; the Compiler
// handles that on emit.
func Send(destination, contentType string, body []byte, extra []stompy.HeaderEntry) stompy.Frame {
	f := stompy.NewFrame(stompspec.SEND, nil, body)
	f.AddHeader(stompspec.HeaderDestination, destination)
	if contentType != "" {
		f.AddHeader(stompspec.HeaderContentType, contentType)
	}
	mergeExtra(&f, stompspec.SEND, extra)
	return f
}

// Subscribe builds a SUBSCRIBE frame. token is required on the wire under
// 1.1; pass "" under 1.0 and the caller (usually the Session) tracks its
// own id instead.
func Subscribe(token, destination string, extra []stompy.HeaderEntry) stompy.Frame {
	f := stompy.NewFrame(stompspec.SUBSCRIBE, nil, nil)
	f.AddHeader(stompspec.HeaderDestination, destination)
	if token != "" {
		f.AddHeader(stompspec.HeaderID, token)
	}
	mergeExtra(&f, stompspec.SUBSCRIBE, extra)
	return f
}

// Unsubscribe builds an UNSUBSCRIBE frame for token.
func Unsubscribe(token string, extra []stompy.HeaderEntry) stompy.Frame {
	f := stompy.NewFrame(stompspec.UNSUBSCRIBE, nil, nil)
	f.AddHeader(stompspec.HeaderID, token)
	mergeExtra(&f, stompspec.UNSUBSCRIBE, extra)
	return f
}

// Ack builds an ACK frame. subscriptionToken only goes on the wire under
// 1.1.
func Ack(version stompspec.Version, messageID, subscriptionToken string, extra []stompy.HeaderEntry) stompy.Frame {
	f := stompy.NewFrame(stompspec.ACK, nil, nil)
	f.AddHeader(stompspec.HeaderMessageID, messageID)
	if version != stompspec.VERSION_1_0 && subscriptionToken != "" {
		f.AddHeader(stompspec.HeaderSubscription, subscriptionToken)
	}
	mergeExtra(&f, stompspec.ACK, extra)
	return f
}

// Nack builds a NACK frame. There's no NACK under 1.0, so this returns an
// error instead of a frame in that case.
func Nack(version stompspec.Version, messageID, subscriptionToken string, extra []stompy.HeaderEntry) (stompy.Frame, error) {
	if version == stompspec.VERSION_1_0 {
		return stompy.Frame{}, &stomperr.ProtocolError{Message: "NACK is not supported under STOMP 1.0"}
	}
	f := stompy.NewFrame(stompspec.NACK, nil, nil)
	f.AddHeader(stompspec.HeaderMessageID, messageID)
	f.AddHeader(stompspec.HeaderSubscription, subscriptionToken)
	mergeExtra(&f, stompspec.NACK, extra)
	return f, nil
}

// Begin builds a BEGIN frame for a new transaction id.
func Begin(transactionID string, extra []stompy.HeaderEntry) stompy.Frame {
	f := stompy.NewFrame(stompspec.BEGIN, nil, nil)
	f.AddHeader(stompspec.HeaderTransaction, transactionID)
	mergeExtra(&f, stompspec.BEGIN, extra)
	return f
}

// Commit builds a COMMIT frame.
func Commit(transactionID string, extra []stompy.HeaderEntry) stompy.Frame {
	f := stompy.NewFrame(stompspec.COMMIT, nil, nil)
	f.AddHeader(stompspec.HeaderTransaction, transactionID)
	mergeExtra(&f, stompspec.COMMIT, extra)
	return f
}

// Abort builds an ABORT frame.
func Abort(transactionID string, extra []stompy.HeaderEntry) stompy.Frame {
	f := stompy.NewFrame(stompspec.ABORT, nil, nil)
	f.AddHeader(stompspec.HeaderTransaction, transactionID)
	mergeExtra(&f, stompspec.ABORT, extra)
	return f
}

// Disconnect builds a DISCONNECT frame, with a receipt header if
// receiptID is set.
func Disconnect(receiptID string) stompy.Frame {
	f := stompy.NewFrame(stompspec.DISCONNECT, nil, nil)
	if receiptID != "" {
		f.AddHeader(stompspec.HeaderReceipt, receiptID)
	}
	return f
}

// Beat builds the heartbeat sentinel frame: no command, headers or body.
// 1.1-only.
func Beat(version stompspec.Version) (stompy.Frame, error) {
	if version == stompspec.VERSION_1_0 {
		return stompy.Frame{}, &stomperr.ProtocolError{Message: "heart-beat is not supported under STOMP 1.0"}
	}
	return stompy.Frame{}, nil
}
