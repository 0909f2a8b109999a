// ABOUTME: FlowmoGate classifies reflection-topic messages against the capture boundary
// ABOUTME: Pure decision function; persistence side effects belong to the orchestrator
package core

import (
	"strings"
	"time"
)

// Classification of an incoming reflection-topic message
type Classification int

const (
	// Continuation extends the current capture window; no new flowmo
	Continuation Classification = iota
	// NewCapture stores the message as a flowmo and moves the boundary
	NewCapture
	// Retraction deletes the most recent chat-captured flowmo instead
	Retraction
)

func (c Classification) String() string {
	switch c {
	case Continuation:
		return "continuation"
	case NewCapture:
		return "new_capture"
	case Retraction:
		return "retraction"
	}
	return "unknown"
}

// RetractionPredicate decides whether a message retracts the previous
// capture. The exact rule is deliberately pluggable; nil disables
// retraction entirely.
type RetractionPredicate func(text string) bool

// FlowmoGate decides capture-vs-continuation for the reflection topic
type FlowmoGate struct {
	interval time.Duration
	retract  RetractionPredicate
}

// NewFlowmoGate creates a gate with the given capture interval
func NewFlowmoGate(interval time.Duration, retract RetractionPredicate) *FlowmoGate {
	return &FlowmoGate{interval: interval, retract: retract}
}

// Interval returns the configured capture interval
func (g *FlowmoGate) Interval() time.Duration {
	return g.interval
}

// Classify decides how to treat a message arriving at now, given the
// persisted boundary timestamp. A zero boundary means no capture exists
// yet, which always opens a new one.
func (g *FlowmoGate) Classify(boundaryAt, now time.Time, text string) Classification {
	if g.retract != nil && g.retract(text) {
		return Retraction
	}
	if boundaryAt.IsZero() {
		return NewCapture
	}
	if now.Sub(boundaryAt) >= g.interval {
		return NewCapture
	}
	return Continuation
}

// KeywordRetraction builds a simple substring-match predicate. Intended
// for tests and as a placeholder until a real intent rule exists.
func KeywordRetraction(phrases ...string) RetractionPredicate {
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return func(text string) bool {
		t := strings.ToLower(text)
		for _, p := range lowered {
			if strings.Contains(t, p) {
				return true
			}
		}
		return false
	}
}
