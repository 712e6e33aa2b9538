package stompfailover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestGeneratorFailoverProgress reproduces the five-yield worked example:
// two endpoints, initialReconnectDelay=100, maxReconnectDelay=400,
// backOffMultiplier=2, randomize=false. The first yield is always
// undelayed; from there the delay doubles on every subsequent yield until
// it is capped at maxReconnectDelay.
func TestGeneratorFailoverProgress(t *testing.T) {
	uri, err := Parse("failover:(tcp://a:1,tcp://b:2)?initialReconnectDelay=100" +
		"&maxReconnectDelay=400&backOffMultiplier=2&randomize=false")
	assert.NoError(t, err)
	gen := New(uri)

	type want struct {
		host  string
		delay time.Duration
	}
	wants := []want{
		{"a", 0},
		{"b", 100 * time.Millisecond},
		{"a", 200 * time.Millisecond},
		{"b", 400 * time.Millisecond},
		{"a", 400 * time.Millisecond}, // capped: 400*2 would be 800
	}
	for i, w := range wants {
		ep, delay, err := gen.Next()
		assert.NoError(t, err, "yield %d should not be exhausted", i)
		assert.Equal(t, w.host, ep.Host, "yield %d host", i)
		assert.Equal(t, w.delay, delay, "yield %d delay", i)
	}
}

func TestGeneratorCyclesEndpointsForever(t *testing.T) {
	uri, err := Parse("failover:(tcp://a:1,tcp://b:2,tcp://c:3)?randomize=false")
	assert.NoError(t, err)
	gen := New(uri)
	var hosts []string
	for i := 0; i < 7; i++ {
		ep, _, err := gen.Next()
		assert.NoError(t, err)
		hosts = append(hosts, ep.Host)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a"}, hosts)
}

func TestGeneratorExhaustsAtMaxReconnectAttempts(t *testing.T) {
	uri, err := Parse("failover:(tcp://a:1)?maxReconnectAttempts=3")
	assert.NoError(t, err)
	gen := New(uri)
	for i := 0; i < 3; i++ {
		_, _, err := gen.Next()
		assert.NoError(t, err, "attempt %d should be within budget", i)
	}
	_, _, err = gen.Next()
	assert.Error(t, err, "the 4th attempt must exceed maxReconnectAttempts=3")
}

func TestGeneratorUnlimitedByDefault(t *testing.T) {
	uri, err := Parse("tcp://a:1")
	assert.NoError(t, err)
	gen := New(uri)
	for i := 0; i < 50; i++ {
		_, _, err := gen.Next()
		assert.NoError(t, err, "maxReconnectAttempts defaults to -1 (unlimited)")
	}
}

func TestGeneratorStartupBudgetSeparateFromSteadyState(t *testing.T) {
	uri, err := Parse("failover:(tcp://a:1)?startupMaxReconnectAttempts=2&maxReconnectAttempts=5")
	assert.NoError(t, err)
	gen := New(uri)

	_, _, err = gen.Next()
	assert.NoError(t, err)
	_, _, err = gen.Next()
	assert.NoError(t, err)
	_, _, err = gen.Next()
	assert.Error(t, err, "startupMaxReconnectAttempts=2 must be exhausted on the 3rd attempt before any connect")

	gen2 := New(uri)
	gen2.Next()
	gen2.Next()
	gen2.MarkConnected()
	for i := 0; i < 5; i++ {
		_, _, err := gen2.Next()
		assert.NoError(t, err, "after MarkConnected, the maxReconnectAttempts budget (5) applies instead")
	}
	_, _, err = gen2.Next()
	assert.Error(t, err, "the 6th post-connect attempt must exceed maxReconnectAttempts=5")
}

func TestGeneratorMarkConnectedResetsBackoff(t *testing.T) {
	uri, err := Parse("failover:(tcp://a:1)?initialReconnectDelay=50&backOffMultiplier=2")
	assert.NoError(t, err)
	gen := New(uri)
	gen.Next()                 // delay 0
	_, d, _ := gen.Next()       // delay 50
	assert.Equal(t, 50*time.Millisecond, d)
	gen.MarkConnected()
	_, d, _ = gen.Next()
	assert.Equal(t, time.Duration(0), d, "the first attempt after MarkConnected resets to an undelayed yield")
}
