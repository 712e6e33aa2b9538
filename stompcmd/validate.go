package stompcmd

import (
	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stomperr"
	"github.com/maleck13/stompy/stompspec"
)

// requireHeaders returns a ProtocolError naming the first missing header,
// or nil if all are present.
func requireHeaders(f stompy.Frame, names ...string) error {
	for _, name := range names {
		if !f.HasHeader(name) {
			return &stomperr.ProtocolError{Message: "missing required header " + name + " on " + f.Command}
		}
	}
	return nil
}

// Connected validates an inbound CONNECTED frame. version, session and
// server are all optional.
func Connected(f stompy.Frame) error {
	if f.Command != stompspec.CONNECTED {
		return &stomperr.ProtocolError{Message: "expected CONNECTED, got " + f.Command}
	}
	if v, ok := f.Header(stompspec.HeaderVersion); ok {
		if _, supported := stompspec.ParseVersion(v); !supported {
			return &stomperr.UnsupportedVersionError{Got: v}
		}
	}
	return nil
}

// Message validates an inbound MESSAGE frame. Under 1.1 the subscription
// header is also required.
func Message(version stompspec.Version, f stompy.Frame) error {
	if f.Command != stompspec.MESSAGE {
		return &stomperr.ProtocolError{Message: "expected MESSAGE, got " + f.Command}
	}
	if err := requireHeaders(f, stompspec.HeaderMessageID, stompspec.HeaderDestination); err != nil {
		return err
	}
	if version != stompspec.VERSION_1_0 {
		if err := requireHeaders(f, stompspec.HeaderSubscription); err != nil {
			return err
		}
	}
	if f.Body != nil && !stompspec.BodyAllowed(f.Command) {
		return &stomperr.ProtocolError{Message: "MESSAGE must not carry a body under this table"}
	}
	return nil
}

// Receipt validates an inbound RECEIPT frame.
func Receipt(f stompy.Frame) error {
	if f.Command != stompspec.RECEIPT {
		return &stomperr.ProtocolError{Message: "expected RECEIPT, got " + f.Command}
	}
	return requireHeaders(f, stompspec.HeaderReceiptID)
}

// Error validates an inbound ERROR frame. There's no strictly required
// header beyond the command itself; "message" is conventional, not
// guaranteed.
func Error(f stompy.Frame) error {
	if f.Command != stompspec.ERROR {
		return &stomperr.ProtocolError{Message: "expected ERROR, got " + f.Command}
	}
	return nil
}
