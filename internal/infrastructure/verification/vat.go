package verification

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

// VATAdapter verifies VAT identifiers against an official registry lookup
// service (VIES-style).  The wire contract is a GET returning validity plus
// the registered name and address.
type VATAdapter struct {
	baseURL string
	client  *http.Client
}

// NewVATAdapter constructs a VAT adapter with its own bounded http client.
func NewVATAdapter(baseURL string, timeout time.Duration) *VATAdapter {
	return &VATAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *VATAdapter) Source() counterparty.Source { return counterparty.SourceVAT }

// vatResponse is the registry's reply shape.
type vatResponse struct {
	Valid           bool   `json:"valid"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	ConsultationRef string `json:"consultation_ref"`
}

// Verify validates the identifier format locally, then queries the registry.
// Timeout and transport errors yield an unknown outcome with the error
// attached; the adapter never reports valid on failure.
func (a *VATAdapter) Verify(ctx context.Context, id Identifier) (Outcome, error) {
	vat := strings.ToUpper(strings.TrimSpace(id.CountryCode + id.VATNumber))
	if err := ValidateVAT(vat); err != nil {
		return Unknown(counterparty.SourceVAT, err), err
	}
	country, number := vat[:2], vat[2:]

	start := time.Now()
	u := fmt.Sprintf("%s/vat/%s/%s", a.baseURL, url.PathEscape(country), url.PathEscape(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		wrapped := errors.Wrap(err, errors.ErrCodeAdapterTransport, "failed to build vat registry request")
		return Unknown(counterparty.SourceVAT, wrapped), wrapped
	}

	resp, err := a.client.Do(req)
	if err != nil {
		wrapped := classifyTransportErr(err, "vat registry call failed")
		return Unknown(counterparty.SourceVAT, wrapped), wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		wrapped := errors.Newf(errors.ErrCodeAdapterTransport, "vat registry returned status %d", resp.StatusCode)
		return Unknown(counterparty.SourceVAT, wrapped), wrapped
	}

	var body vatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		wrapped := errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode vat registry response")
		return Unknown(counterparty.SourceVAT, wrapped), wrapped
	}

	out := Outcome{
		Source:            counterparty.SourceVAT,
		Status:            StatusInvalid,
		RegisteredName:    body.Name,
		RegisteredAddress: body.Address,
		Ref:               body.ConsultationRef,
		Latency:           time.Since(start),
	}
	if body.Valid {
		out.Status = StatusValid
	}
	return out, nil
}

// classifyTransportErr maps an http client error to the adapter taxonomy:
// deadline exceeded becomes AdapterTimeout, everything else AdapterTransport.
func classifyTransportErr(err error, msg string) error {
	if stderrors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
		return errors.Wrap(err, errors.ErrCodeAdapterTimeout, msg)
	}
	return errors.Wrap(err, errors.ErrCodeAdapterTransport, msg)
}

func isClientTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return stderrors.As(err, &ne) && ne.Timeout()
}
