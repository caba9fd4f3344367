package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

// LEIAdapter verifies Legal Entity Identifiers against a GLEIF-style
// registry: lookup by 20-character code returning the registration status.
type LEIAdapter struct {
	baseURL string
	client  *http.Client
}

// NewLEIAdapter constructs an LEI adapter with its own bounded http client.
func NewLEIAdapter(baseURL string, timeout time.Duration) *LEIAdapter {
	return &LEIAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *LEIAdapter) Source() counterparty.Source { return counterparty.SourceLEI }

type leiResponse struct {
	Status    string `json:"status"` // "ACTIVE" | "INACTIVE" | "LAPSED"
	RequestID string `json:"request_id"`
}

// Verify validates the code format locally, then queries the registry.  An
// ACTIVE status maps to valid; any other registry status is invalid.
func (a *LEIAdapter) Verify(ctx context.Context, id Identifier) (Outcome, error) {
	lei := strings.ToUpper(strings.TrimSpace(id.LEI))
	if err := ValidateLEI(lei); err != nil {
		return Unknown(counterparty.SourceLEI, err), err
	}

	start := time.Now()
	u := fmt.Sprintf("%s/lei/%s", a.baseURL, url.PathEscape(lei))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		wrapped := errors.Wrap(err, errors.ErrCodeAdapterTransport, "failed to build lei registry request")
		return Unknown(counterparty.SourceLEI, wrapped), wrapped
	}

	resp, err := a.client.Do(req)
	if err != nil {
		wrapped := classifyTransportErr(err, "lei registry call failed")
		return Unknown(counterparty.SourceLEI, wrapped), wrapped
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// An unregistered code is a definitive answer, not an outage.
		return Outcome{
			Source:    counterparty.SourceLEI,
			Status:    StatusInvalid,
			LEIStatus: "NOT_FOUND",
			Latency:   time.Since(start),
		}, nil
	default:
		wrapped := errors.Newf(errors.ErrCodeAdapterTransport, "lei registry returned status %d", resp.StatusCode)
		return Unknown(counterparty.SourceLEI, wrapped), wrapped
	}

	var body leiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		wrapped := errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode lei registry response")
		return Unknown(counterparty.SourceLEI, wrapped), wrapped
	}

	out := Outcome{
		Source:    counterparty.SourceLEI,
		Status:    StatusInvalid,
		LEIStatus: strings.ToUpper(body.Status),
		Ref:       body.RequestID,
		Latency:   time.Since(start),
	}
	if out.LEIStatus == "ACTIVE" {
		out.Status = StatusValid
	}
	return out, nil
}
