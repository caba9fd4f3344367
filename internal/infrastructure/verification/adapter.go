// Package verification wraps the external verification sources — the VAT
// registry, the LEI registry, and sanctions screening — behind one uniform
// adapter contract.  Adapters are stateless and safe for concurrent use;
// every call is bounded by a per-source timeout and a transport failure is
// reported as an unknown outcome with the error attached, never as valid.
package verification

import (
	"context"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// Status is the tri-state verification result.
type Status int

const (
	StatusValid Status = iota + 1
	StatusInvalid
	StatusUnknown
)

// String returns the human-readable representation.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusInvalid:
		return "INVALID"
	case StatusUnknown:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// Identifier carries everything an adapter might need to verify one
// counterparty.  Each adapter reads only the fields relevant to its source.
type Identifier struct {
	CounterpartyID common.ID
	DisplayName    string
	CountryCode    string
	VATNumber      string
	LEI            string
}

// Outcome is the uniform result of one verification call.
type Outcome struct {
	Source counterparty.Source
	Status Status

	// VAT registry payload.
	RegisteredName    string
	RegisteredAddress string

	// LEI registry payload.
	LEIStatus string

	// Sanctions payload: names of the lists that matched.
	MatchedLists []string

	// Ref is the source-issued reference for this lookup (consultation
	// number, request ID), kept for audit.
	Ref string

	// Latency is the measured call duration.
	Latency time.Duration

	// Err is attached when Status is unknown because the source failed.
	Err error
}

// Unknown builds the outcome an adapter returns when its source is
// unreachable or timed out.
func Unknown(src counterparty.Source, err error) Outcome {
	return Outcome{Source: src, Status: StatusUnknown, Err: err}
}

// Adapter is the uniform contract every verification source implements.
// Verify returns a typed error for transport failures and timeouts so the
// caller's retry harness can distinguish retryable from permanent failures;
// the returned Outcome is always populated, with Status unknown on error.
type Adapter interface {
	Source() counterparty.Source
	Verify(ctx context.Context, id Identifier) (Outcome, error)
}

// instrumented wraps an Adapter with structured timing logs.  It is the
// explicit middleware form of cross-cutting call logging: the orchestrator
// composes it around each adapter instead of call sites doing their own
// timing.
type instrumented struct {
	next    Adapter
	logger  logging.Logger
	observe func(src counterparty.Source, status Status, d time.Duration)
}

// Instrument wraps adapter with timing/logging middleware.  observe is
// optional; when non-nil it receives every call's source, status, and
// duration (wired to prometheus by the worker).
func Instrument(adapter Adapter, logger logging.Logger, observe func(src counterparty.Source, status Status, d time.Duration)) Adapter {
	return &instrumented{next: adapter, logger: logger, observe: observe}
}

func (i *instrumented) Source() counterparty.Source { return i.next.Source() }

func (i *instrumented) Verify(ctx context.Context, id Identifier) (Outcome, error) {
	start := time.Now()
	out, err := i.next.Verify(ctx, id)
	elapsed := time.Since(start)
	if out.Latency == 0 {
		out.Latency = elapsed
	}

	fields := []logging.Field{
		logging.String("source", string(i.next.Source())),
		logging.String("counterparty_id", id.CounterpartyID.String()),
		logging.String("status", out.Status.String()),
		logging.Duration("elapsed", elapsed),
	}
	if err != nil {
		i.logger.Warn("verification call failed", append(fields, logging.Err(err))...)
	} else {
		i.logger.Debug("verification call completed", fields...)
	}

	if i.observe != nil {
		i.observe(i.next.Source(), out.Status, elapsed)
	}
	return out, err
}
