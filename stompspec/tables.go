package stompspec

// Wire-level constants shared by every component. Nothing outside this
// package should hard-code a verb string or separator byte.
const (
	LineDelimiter    = "\n"
	FrameDelimiter   = "\x00"
	HeaderSeparator  = ":"
	EscapeCharacter  = "\\"
)

// Client-originated command verbs.
const (
	CONNECT     = "CONNECT"
	SEND        = "SEND"
	SUBSCRIBE   = "SUBSCRIBE"
	UNSUBSCRIBE = "UNSUBSCRIBE"
	BEGIN       = "BEGIN"
	COMMIT      = "COMMIT"
	ABORT       = "ABORT"
	ACK         = "ACK"
	NACK        = "NACK"
	DISCONNECT  = "DISCONNECT"
)

// Server-originated command verbs.
const (
	CONNECTED = "CONNECTED"
	MESSAGE   = "MESSAGE"
	RECEIPT   = "RECEIPT"
	ERROR     = "ERROR"
)

// HeartBeat is the synthetic command of the sentinel empty frame the
// parser surfaces for a bare LF/CRLF between frames.
const HeartBeat = ""

// Header names. Unexported verb-table maps below reference these by value
// so stompcmd and stompsess never spell a header name themselves.
const (
	HeaderAcceptVersion = "accept-version"
	HeaderVersion       = "version"
	HeaderLogin         = "login"
	HeaderPasscode      = "passcode"
	HeaderHost          = "host"
	HeaderHeartBeat     = "heart-beat"
	HeaderSession       = "session"
	HeaderServer        = "server"
	HeaderDestination   = "destination"
	HeaderMessageID     = "message-id"
	HeaderSubscription  = "subscription"
	HeaderID            = "id"
	HeaderAck           = "ack"
	HeaderTransaction   = "transaction"
	HeaderReceipt       = "receipt"
	HeaderReceiptID     = "receipt-id"
	HeaderContentType   = "content-type"
	HeaderContentLength = "content-length"
	HeaderMessage       = "message"
)

// clientCommands is indexed by version. NACK only shows up under 1.1.
var clientCommands = map[Version]map[string]bool{
	VERSION_1_0: {
		CONNECT: true, SEND: true, SUBSCRIBE: true, UNSUBSCRIBE: true,
		BEGIN: true, COMMIT: true, ABORT: true, ACK: true, DISCONNECT: true,
	},
	VERSION_1_1: {
		CONNECT: true, SEND: true, SUBSCRIBE: true, UNSUBSCRIBE: true,
		BEGIN: true, COMMIT: true, ABORT: true, ACK: true, NACK: true,
		DISCONNECT: true,
	},
}

// ClientCommandAllowed reports whether command is a valid client-originated
// verb under version.
func ClientCommandAllowed(v Version, command string) bool {
	return clientCommands[v][command]
}

var serverCommands = map[string]bool{
	CONNECTED: true, MESSAGE: true, RECEIPT: true, ERROR: true,
}

// ServerCommandAllowed reports whether command is a recognized
// server-originated verb.
func ServerCommandAllowed(command string) bool {
	return serverCommands[command]
}

var requiredHeaders = map[string][]string{
	CONNECTED: nil, // version/session/server are all optional
	MESSAGE:   {HeaderMessageID, HeaderDestination},
	RECEIPT:   {HeaderReceiptID},
	ERROR:     nil,
	SEND:      {HeaderDestination},
	SUBSCRIBE: {HeaderDestination},
	BEGIN:     {HeaderTransaction},
	COMMIT:    {HeaderTransaction},
	ABORT:     {HeaderTransaction},
	ACK:       {HeaderMessageID},
	NACK:      {HeaderMessageID},
}

// RequiredHeaders returns the headers a frame of the given command must
// carry. MESSAGE additionally requires HeaderSubscription under 1.1, which
// callers must check separately since it is version-dependent.
func RequiredHeaders(command string) []string {
	return requiredHeaders[command]
}

// bodyAllowed: SEND, MESSAGE and ERROR are binary-safe, everything else
// must have an empty body.
var bodyAllowed = map[string]bool{
	SEND:    true,
	MESSAGE: true,
	ERROR:   true,
}

// BodyAllowed reports whether command may carry a non-empty body.
func BodyAllowed(command string) bool {
	return bodyAllowed[command]
}

// escapedCharacters maps each version to the raw bytes that must be
// escaped on emit and unescaped on receive. 1.0 performs no escaping.
var escapedCharacters = map[Version]map[byte]byte{
	VERSION_1_1: {
		'\n': 'n',
		':':  'c',
		'\\': '\\',
	},
}

// EscapedCharacters returns the raw-byte -> escape-letter table for
// version, or nil if that version performs no escaping.
func EscapedCharacters(v Version) map[byte]byte {
	return escapedCharacters[v]
}

// EscapingSupported reports whether version escapes headers at all. A 1.0
// caller that sets a colon or newline in a header value gets a rejection
// instead of a silent escape.
func EscapingSupported(v Version) bool {
	return v != VERSION_1_0
}
