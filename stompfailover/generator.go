package stompfailover

import (
	"math"
	"math/rand"
	"time"

	"github.com/maleck13/stompy/stomperr"
)

// Generator yields a sequence of (Endpoint, delay) pairs, endless unless
// an attempt budget is set, for a transport to consult whenever it needs a broker to dial next. It never
// sleeps itself; the caller waits out the returned delay before dialing.
// The first yielded delay on a fresh iterator is always 0.
type Generator struct {
	endpoints []Endpoint
	opts      Options
	order     []Endpoint
	idx       int

	firstYield     bool
	currentDelayMs float64
	attempts       int
	connectedOnce  bool
}

// New returns a Generator over uri's endpoints and options.
func New(uri *URI) *Generator {
	g := &Generator{endpoints: uri.Endpoints, opts: uri.Options}
	g.firstYield = true
	g.currentDelayMs = float64(g.opts.InitialReconnectDelay)
	g.resetOrder()
	return g
}

func (g *Generator) resetOrder() {
	g.order = append([]Endpoint(nil), g.endpoints...)
	if g.opts.Randomize {
		rand.Shuffle(len(g.order), func(i, j int) {
			g.order[i], g.order[j] = g.order[j], g.order[i]
		})
	}
	g.idx = 0
}

// MarkConnected tells the Generator that a connection has succeeded at
// least once. This switches the attempt budget from
// StartupMaxReconnectAttempts (if set) to MaxReconnectAttempts, and
// resets the backoff delay back to the initial value for the next
// failure sequence.
func (g *Generator) MarkConnected() {
	g.connectedOnce = true
	g.attempts = 0
	g.currentDelayMs = float64(g.opts.InitialReconnectDelay)
	g.firstYield = true
}

func (g *Generator) attemptLimit() int {
	if !g.connectedOnce && g.opts.StartupMaxReconnectAttempts != 0 {
		return g.opts.StartupMaxReconnectAttempts
	}
	return g.opts.MaxReconnectAttempts
}

// Next returns the next endpoint to dial and how long to wait before
// dialing it. It returns a *stomperr.FailoverExhaustedError once the
// applicable attempt budget (MaxReconnectAttempts, or
// StartupMaxReconnectAttempts before the first successful connect) has
// been spent.
func (g *Generator) Next() (Endpoint, time.Duration, error) {
	if limit := g.attemptLimit(); limit >= 0 && g.attempts >= limit {
		return Endpoint{}, 0, &stomperr.FailoverExhaustedError{Attempts: g.attempts}
	}
	if g.idx >= len(g.order) {
		g.resetOrder()
	}
	endpoint := g.order[g.idx]
	g.idx++
	g.attempts++

	var delayMs float64
	if g.firstYield {
		delayMs = 0
		g.firstYield = false
	} else {
		delayMs = g.currentDelayMs
		if g.opts.UseExponentialBackOff {
			g.currentDelayMs = math.Min(g.currentDelayMs*g.opts.BackOffMultiplier, float64(g.opts.MaxReconnectDelay))
		}
	}
	if g.opts.ReconnectDelayJitter > 0 && delayMs > 0 {
		delayMs += float64(rand.Intn(g.opts.ReconnectDelayJitter + 1))
	}
	return endpoint, time.Duration(delayMs) * time.Millisecond, nil
}

// Attempts reports how many endpoints this Generator has yielded since
// construction or the last MarkConnected call.
func (g *Generator) Attempts() int {
	return g.attempts
}
