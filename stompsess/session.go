// Package stompsess implements the client-side session state machine: it
// turns protocol verbs into validated Frames to send, and feeds inbound
// Frames back in to drive CONNECTED/MESSAGE/RECEIPT/ERROR bookkeeping.
// It's a plain synchronous data structure with no goroutines, channels or
// locking. The caller owns one Session at a time and serializes its own
// calls.
package stompsess

import (
	"time"

	"github.com/nu7hatch/gouuid"

	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stomperr"
	"github.com/maleck13/stompy/stompcmd"
	"github.com/maleck13/stompy/stompspec"
)

// State is one node of the session lifecycle.
type State string

const (
	StateInitial       State = "INITIAL"
	StateConnecting    State = "CONNECTING"
	StateConnected     State = "CONNECTED"
	StateDisconnecting State = "DISCONNECTING"
	StateDisconnected  State = "DISCONNECTED"
)

// Config is the configuration record passed to the session constructor.
// The uri itself is consumed by stompfailover, not by the Session; it's
// carried here purely as a record of what was configured.
type Config struct {
	URI      string
	Versions []stompspec.Version
	Login    string
	Passcode string
	Host     string
}

// Subscription is one entry of the replay plan: everything needed to
// reissue a SUBSCRIBE after reconnecting.
type Subscription struct {
	Token       string
	Destination string
	Headers     []stompy.HeaderEntry
	Context     any
}

// MessageRef names the MESSAGE an ACK/NACK responds to. Subscription may
// be left empty; the Session then resolves it from the last MESSAGE
// observed via Message.
type MessageRef struct {
	MessageID    string
	Subscription string
}

// RefFromFrame builds a MessageRef directly from an inbound MESSAGE frame.
func RefFromFrame(f stompy.Frame) MessageRef {
	id, _ := f.Header(stompspec.HeaderMessageID)
	sub, _ := f.Header(stompspec.HeaderSubscription)
	return MessageRef{MessageID: id, Subscription: sub}
}

// idGenerator is swappable so tests can pin deterministic ids; the default
// is a real UUIDv4 generator.
type idGenerator func() (string, error)

func defaultIDGenerator() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Session is the client-side STOMP session state machine.
type Session struct {
	config Config
	state  State

	requestedVersions []stompspec.Version
	version           stompspec.Version
	serverID          string

	subscriptions        []Subscription
	subscriptionsByToken map[string]int // index into subscriptions
	transactions         map[string]bool
	outstandingReceipts  map[string]bool
	disconnectReceipt    string

	lastMessageSubscription string
	lastActivity            time.Time

	newID idGenerator
}

// New returns a Session in StateInitial for cfg.
func New(cfg Config) *Session {
	return &Session{
		config:               cfg,
		state:                StateInitial,
		subscriptionsByToken: make(map[string]int),
		transactions:         make(map[string]bool),
		outstandingReceipts:  make(map[string]bool),
		newID:                defaultIDGenerator,
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Version returns the negotiated version. It is the zero Version until
// Connected succeeds.
func (s *Session) Version() stompspec.Version {
	return s.version
}

// ServerID returns the opaque session id the broker sent on CONNECTED, or
// "" if it was absent or the session hasn't connected yet.
func (s *Session) ServerID() string {
	return s.serverID
}

// LastActivity returns the wall-clock time of the most recent send or
// receive this session processed. It's recorded purely for the caller's
// heart-beat logic; the session itself never schedules a timer off of it.
func (s *Session) LastActivity() time.Time {
	return s.lastActivity
}

func (s *Session) touch() {
	s.lastActivity = time.Now()
}

func (s *Session) requireState(action string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			s.touch()
			return nil
		}
	}
	return &stomperr.StateError{State: string(s.state), Action: action}
}

func (s *Session) trackReceipt(f stompy.Frame) {
	if id, ok := f.Header(stompspec.HeaderReceipt); ok {
		s.outstandingReceipts[id] = true
	}
}

// Connect builds the CONNECT frame and transitions to CONNECTING.
// versions defaults to {1.0, 1.1} sorted ascending.
func (s *Session) Connect(extra ...stompy.HeaderEntry) (stompy.Frame, error) {
	if err := s.requireState("connect", StateInitial); err != nil {
		return stompy.Frame{}, err
	}
	versions := s.config.Versions
	if len(versions) == 0 {
		versions = stompspec.SortAscending(stompspec.SupportedVersions)
	}
	s.requestedVersions = versions
	f := stompcmd.Connect(s.config.Login, s.config.Passcode, s.config.Host, versions, extra)
	s.state = StateConnecting
	return f, nil
}

// Connected feeds the server's CONNECTED frame back in and performs
// version negotiation. On success it transitions to CONNECTED; on failure
// it transitions to DISCONNECTED and returns a *stomperr.ProtocolError or
// *stomperr.UnsupportedVersionError.
func (s *Session) Connected(f stompy.Frame) error {
	if err := s.requireState("connected", StateConnecting); err != nil {
		return err
	}
	if err := stompcmd.Connected(f); err != nil {
		s.state = StateDisconnected
		return err
	}
	version := stompspec.DefaultVersion
	if raw, ok := f.Header(stompspec.HeaderVersion); ok {
		v, supported := stompspec.ParseVersion(raw)
		if !supported || !stompspec.Contains(s.requestedVersions, v) {
			s.state = StateDisconnected
			return &stomperr.UnsupportedVersionError{Requested: versionStrings(s.requestedVersions), Got: raw}
		}
		version = v
	}
	s.version = version
	s.serverID, _ = f.Header(stompspec.HeaderSession)
	s.state = StateConnected
	return nil
}

func versionStrings(versions []stompspec.Version) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = string(v)
	}
	return out
}

// Send builds a SEND frame.
func (s *Session) Send(destination, contentType string, body []byte, extra ...stompy.HeaderEntry) (stompy.Frame, error) {
	if err := s.requireState("send", StateConnected); err != nil {
		return stompy.Frame{}, err
	}
	f := stompcmd.Send(destination, contentType, body, extra)
	s.trackReceipt(f)
	return f, nil
}

// Subscribe builds a SUBSCRIBE frame and records the subscription for
// replay. A token is always synthesized for internal bookkeeping; it's
// only placed on the wire under 1.1, where the id header is mandatory.
func (s *Session) Subscribe(destination string, context any, extra ...stompy.HeaderEntry) (stompy.Frame, error) {
	if err := s.requireState("subscribe", StateConnected); err != nil {
		return stompy.Frame{}, err
	}
	token, err := s.newID()
	if err != nil {
		return stompy.Frame{}, err
	}
	if _, exists := s.subscriptionsByToken[token]; exists {
		return stompy.Frame{}, &stomperr.ProtocolError{Message: "duplicate subscription token " + token}
	}

	wireToken := ""
	if s.version != stompspec.VERSION_1_0 {
		wireToken = token
	}
	f := stompcmd.Subscribe(wireToken, destination, extra)
	s.trackReceipt(f)

	sub := Subscription{Token: token, Destination: destination, Headers: append([]stompy.HeaderEntry(nil), f.RawHeaders...), Context: context}
	s.subscriptionsByToken[token] = len(s.subscriptions)
	s.subscriptions = append(s.subscriptions, sub)
	return f, nil
}

// Unsubscribe builds an UNSUBSCRIBE frame and drops the matching
// subscription, by token under 1.1 or by destination under 1.0 when no
// token was placed on the wire.
func (s *Session) Unsubscribe(tokenOrDestination string, extra ...stompy.HeaderEntry) (stompy.Frame, error) {
	if err := s.requireState("unsubscribe", StateConnected); err != nil {
		return stompy.Frame{}, err
	}
	if s.version != stompspec.VERSION_1_0 {
		idx, ok := s.subscriptionsByToken[tokenOrDestination]
		if !ok {
			return stompy.Frame{}, &stomperr.ProtocolError{Message: "unknown subscription token " + tokenOrDestination}
		}
		s.removeSubscriptionAt(idx)
		f := stompcmd.Unsubscribe(tokenOrDestination, extra)
		s.trackReceipt(f)
		return f, nil
	}

	idx := -1
	for i, sub := range s.subscriptions {
		if sub.Destination == tokenOrDestination {
			idx = i
			break
		}
	}
	if idx == -1 {
		return stompy.Frame{}, &stomperr.ProtocolError{Message: "unknown subscription destination " + tokenOrDestination}
	}
	token := s.subscriptions[idx].Token
	s.removeSubscriptionAt(idx)
	f := stompcmd.Unsubscribe(token, extra)
	s.trackReceipt(f)
	return f, nil
}

// removeSubscriptionAt deletes the subscription at idx and re-indexes
// subscriptionsByToken for everything shifted after it.
func (s *Session) removeSubscriptionAt(idx int) {
	removedToken := s.subscriptions[idx].Token
	s.subscriptions = append(s.subscriptions[:idx], s.subscriptions[idx+1:]...)
	delete(s.subscriptionsByToken, removedToken)
	for token, i := range s.subscriptionsByToken {
		if i > idx {
			s.subscriptionsByToken[token] = i - 1
		}
	}
}

// Ack builds an ACK frame for ref, resolving its subscription token from
// the last observed MESSAGE when ref.Subscription is empty.
func (s *Session) Ack(ref MessageRef, extra ...stompy.HeaderEntry) (stompy.Frame, error) {
	if err := s.requireState("ack", StateConnected); err != nil {
		return stompy.Frame{}, err
	}
	sub := ref.Subscription
	if sub == "" {
		sub = s.lastMessageSubscription
	}
	f := stompcmd.Ack(s.version, ref.MessageID, sub, extra)
	s.trackReceipt(f)
	return f, nil
}

// Nack builds a NACK frame for ref. It is 1.1-only; under 1.0 it returns
// *stomperr.ProtocolError without changing state.
func (s *Session) Nack(ref MessageRef, extra ...stompy.HeaderEntry) (stompy.Frame, error) {
	if err := s.requireState("nack", StateConnected); err != nil {
		return stompy.Frame{}, err
	}
	sub := ref.Subscription
	if sub == "" {
		sub = s.lastMessageSubscription
	}
	f, err := stompcmd.Nack(s.version, ref.MessageID, sub, extra)
	if err != nil {
		return stompy.Frame{}, err
	}
	s.trackReceipt(f)
	return f, nil
}

// Begin builds a BEGIN frame. If id is empty, one is synthesized.
func (s *Session) Begin(id string) (stompy.Frame, error) {
	if err := s.requireState("begin", StateConnected); err != nil {
		return stompy.Frame{}, err
	}
	if id == "" {
		var err error
		id, err = s.newID()
		if err != nil {
			return stompy.Frame{}, err
		}
	}
	if s.transactions[id] {
		return stompy.Frame{}, &stomperr.ProtocolError{Message: "duplicate transaction id " + id}
	}
	s.transactions[id] = true
	return stompcmd.Begin(id, nil), nil
}

// Commit builds a COMMIT frame for id and removes it from the open
// transaction set. An unknown id is a *stomperr.ProtocolError.
func (s *Session) Commit(id string) (stompy.Frame, error) {
	return s.endTransaction("commit", stompcmd.Commit, id)
}

// Abort builds an ABORT frame for id and removes it from the open
// transaction set. An unknown id is a *stomperr.ProtocolError.
func (s *Session) Abort(id string) (stompy.Frame, error) {
	return s.endTransaction("abort", stompcmd.Abort, id)
}

func (s *Session) endTransaction(action string, build func(string, []stompy.HeaderEntry) stompy.Frame, id string) (stompy.Frame, error) {
	if err := s.requireState(action, StateConnected); err != nil {
		return stompy.Frame{}, err
	}
	if !s.transactions[id] {
		return stompy.Frame{}, &stomperr.ProtocolError{Message: "unknown transaction id " + id}
	}
	delete(s.transactions, id)
	return build(id, nil), nil
}

// Disconnect builds a DISCONNECT frame and transitions to DISCONNECTING.
// If receiptID is non-empty, the session awaits that specific receipt
// before transitioning to DISCONNECTED via Receipt; otherwise the caller
// must call Timeout to finalize the teardown; no RECEIPT does.
func (s *Session) Disconnect(receiptID string) (stompy.Frame, error) {
	if err := s.requireState("disconnect", StateConnected); err != nil {
		return stompy.Frame{}, err
	}
	f := stompcmd.Disconnect(receiptID)
	s.disconnectReceipt = receiptID
	if receiptID != "" {
		s.outstandingReceipts[receiptID] = true
	}
	s.state = StateDisconnecting
	return f, nil
}

// Timeout forces a DISCONNECTING session to DISCONNECTED when no RECEIPT
// arrived in time. No-op outside DISCONNECTING.
func (s *Session) Timeout() {
	if s.state == StateDisconnecting {
		s.state = StateDisconnected
	}
}

// TransportLost transitions a CONNECTED session straight to DISCONNECTED.
// No-op outside CONNECTED.
func (s *Session) TransportLost() {
	if s.state == StateConnected {
		s.state = StateDisconnected
	}
}

// Message feeds an inbound MESSAGE frame in, validating it against the
// negotiated version's required headers and remembering its subscription
// token for a subsequent Ack/Nack that doesn't name one explicitly.
func (s *Session) Message(f stompy.Frame) error {
	s.touch()
	if err := stompcmd.Message(s.version, f); err != nil {
		return err
	}
	if sub, ok := f.Header(stompspec.HeaderSubscription); ok {
		s.lastMessageSubscription = sub
	}
	return nil
}

// Receipt feeds an inbound RECEIPT frame in, removing the matching id
// from the outstanding set. An unknown id is a *stomperr.ProtocolError.
// If the id matches the one named by a prior Disconnect call, the session
// transitions to DISCONNECTED.
func (s *Session) Receipt(f stompy.Frame) error {
	s.touch()
	if err := stompcmd.Receipt(f); err != nil {
		return err
	}
	id, _ := f.Header(stompspec.HeaderReceiptID)
	if !s.outstandingReceipts[id] {
		return &stomperr.ProtocolError{Message: "unexpected receipt-id " + id}
	}
	delete(s.outstandingReceipts, id)
	if s.state == StateDisconnecting && id == s.disconnectReceipt {
		s.state = StateDisconnected
	}
	return nil
}

// Error feeds an inbound ERROR frame in. During CONNECTING this
// transitions the session to DISCONNECTED; in any other state the
// session's bookkeeping is untouched and the caller decides how to react.
func (s *Session) Error(f stompy.Frame) error {
	s.touch()
	if err := stompcmd.Error(f); err != nil {
		return err
	}
	if s.state == StateConnecting {
		s.state = StateDisconnected
	}
	return nil
}

// Replay drains the subscription list in original insertion order as a
// plan the reconnection logic re-issues as SUBSCRIBE frames after the new
// CONNECTED. Open transactions and outstanding receipts are discarded
// (not replayed) and returned separately for the caller to report.
func (s *Session) Replay() (plan []Subscription, discardedTransactions []string, discardedReceipts []string) {
	plan, s.subscriptions = s.subscriptions, nil
	s.subscriptionsByToken = make(map[string]int)

	for id := range s.transactions {
		discardedTransactions = append(discardedTransactions, id)
	}
	s.transactions = make(map[string]bool)

	for id := range s.outstandingReceipts {
		discardedReceipts = append(discardedReceipts, id)
	}
	s.outstandingReceipts = make(map[string]bool)

	return plan, discardedTransactions, discardedReceipts
}
