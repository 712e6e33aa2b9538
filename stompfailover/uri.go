// Package stompfailover parses failover URIs and generates the
// (host, port, delay) sequence a transport consults whenever it needs a
// new broker to dial.
package stompfailover

import (
	"strconv"
	"strings"

	"github.com/maleck13/stompy/stomperr"
)

// Endpoint is one broker address in a failover list.
type Endpoint struct {
	Host string
	Port int
}

// Options holds every failover-transport option this toolkit recognizes,
// including PriorityBackup and ReconnectDelayJitter alongside the core
// reconnect-delay knobs.
type Options struct {
	InitialReconnectDelay       int // ms
	MaxReconnectDelay           int // ms
	UseExponentialBackOff       bool
	BackOffMultiplier           float64
	MaxReconnectAttempts        int // -1 = unlimited
	StartupMaxReconnectAttempts int // 0 = same as MaxReconnectAttempts
	Randomize                   bool
	PriorityBackup              bool
	ReconnectDelayJitter        int // ms
}

// DefaultOptions returns the stock reconnect-policy defaults.
func DefaultOptions() Options {
	return Options{
		InitialReconnectDelay:       10,
		MaxReconnectDelay:           30000,
		UseExponentialBackOff:       true,
		BackOffMultiplier:           2.0,
		MaxReconnectAttempts:        -1,
		StartupMaxReconnectAttempts: 0,
		Randomize:                   true,
		PriorityBackup:              false,
		ReconnectDelayJitter:        0,
	}
}

// URI is the parsed form of a failover (or single-broker) connection
// string.
type URI struct {
	Endpoints []Endpoint
	Options   Options
}

const failoverPrefix = "failover:"

// Parse accepts both failover://(...)?opts and failover:(...)?opts forms,
// with whitespace tolerated around commas. A bare "tcp://host:port" with
// no failover: prefix is also accepted, yielding a single-endpoint URI
// with default options.
func Parse(raw string) (*URI, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, failoverPrefix+"//")
	s = strings.TrimPrefix(s, failoverPrefix)

	brokerPart, optionPart, _ := strings.Cut(s, "?")
	brokerPart = strings.TrimSpace(brokerPart)
	brokerPart = strings.TrimPrefix(brokerPart, "(")
	brokerPart = strings.TrimSuffix(brokerPart, ")")

	endpoints, err := parseEndpoints(brokerPart)
	if err != nil {
		return nil, err
	}
	options, err := parseOptions(optionPart)
	if err != nil {
		return nil, err
	}
	if options.PriorityBackup {
		sortLocalFirst(endpoints)
	}
	return &URI{Endpoints: endpoints, Options: options}, nil
}

func parseEndpoints(s string) ([]Endpoint, error) {
	parts := strings.Split(s, ",")
	endpoints := make([]Endpoint, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ep, err := parseEndpoint(part)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	if len(endpoints) == 0 {
		return nil, &stomperr.ProtocolError{Message: "failover uri names no brokers"}
	}
	return endpoints, nil
}

func parseEndpoint(s string) (Endpoint, error) {
	rest, ok := cutScheme(s)
	if !ok {
		return Endpoint{}, &stomperr.ProtocolError{Message: "failover broker must be tcp://host:port, got " + s}
	}
	host, portStr, ok := strings.Cut(rest, ":")
	if !ok || host == "" || portStr == "" {
		return Endpoint{}, &stomperr.ProtocolError{Message: "failover broker must be tcp://host:port, got " + s}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return Endpoint{}, &stomperr.ProtocolError{Message: "invalid port in failover broker: " + s}
	}
	return Endpoint{Host: host, Port: port}, nil
}

func cutScheme(s string) (string, bool) {
	const scheme = "tcp://"
	if !strings.HasPrefix(s, scheme) {
		return "", false
	}
	return s[len(scheme):], true
}

// localHostNames backs the priorityBackup option. It's a fixed list
// rather than a gethostname()/getfqdn() lookup because parsing shouldn't
// depend on the environment.
var localHostNames = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

func sortLocalFirst(endpoints []Endpoint) {
	local := endpoints[:0:0]
	var remote []Endpoint
	for _, ep := range endpoints {
		if localHostNames[ep.Host] {
			local = append(local, ep)
		} else {
			remote = append(remote, ep)
		}
	}
	copy(endpoints, append(local, remote...))
}

func parseOptions(s string) (Options, error) {
	opts := DefaultOptions()
	s = strings.TrimSpace(s)
	if s == "" {
		return opts, nil
	}
	for _, pair := range splitOptionPairs(s) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return opts, &stomperr.ProtocolError{Message: "malformed failover option: " + pair}
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if err := applyOption(&opts, key, value); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// splitOptionPairs accepts both '&' and ',' between key=value pairs.
func splitOptionPairs(s string) []string {
	s = strings.ReplaceAll(s, "&", ",")
	return strings.Split(s, ",")
}

func applyOption(opts *Options, key, value string) error {
	switch key {
	case "initialReconnectDelay":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid initialReconnectDelay: " + value}
		}
		opts.InitialReconnectDelay = n
	case "maxReconnectDelay":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid maxReconnectDelay: " + value}
		}
		opts.MaxReconnectDelay = n
	case "useExponentialBackOff":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid useExponentialBackOff: " + value}
		}
		opts.UseExponentialBackOff = b
	case "backOffMultiplier":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid backOffMultiplier: " + value}
		}
		opts.BackOffMultiplier = f
	case "maxReconnectAttempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid maxReconnectAttempts: " + value}
		}
		opts.MaxReconnectAttempts = n
	case "startupMaxReconnectAttempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid startupMaxReconnectAttempts: " + value}
		}
		opts.StartupMaxReconnectAttempts = n
	case "randomize":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid randomize: " + value}
		}
		opts.Randomize = b
	case "priorityBackup":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid priorityBackup: " + value}
		}
		opts.PriorityBackup = b
	case "reconnectDelayJitter":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &stomperr.ProtocolError{Message: "invalid reconnectDelayJitter: " + value}
		}
		opts.ReconnectDelayJitter = n
	default:
		return &stomperr.ProtocolError{Message: "unknown failover option: " + key}
	}
	return nil
}
