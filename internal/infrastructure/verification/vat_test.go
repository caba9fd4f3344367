package verification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

func TestVATVerifyValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vat/DE/123456789", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valid":true,"name":"Acme Handel GmbH","address":"Hauptstr. 1, Berlin","consultation_ref":"WAPIAAAA42"}`))
	}))
	defer srv.Close()

	a := NewVATAdapter(srv.URL, time.Second)
	out, err := a.Verify(context.Background(), Identifier{CountryCode: "DE", VATNumber: "123456789"})

	require.NoError(t, err)
	assert.Equal(t, counterparty.SourceVAT, out.Source)
	assert.Equal(t, StatusValid, out.Status)
	assert.Equal(t, "Acme Handel GmbH", out.RegisteredName)
	assert.Equal(t, "Hauptstr. 1, Berlin", out.RegisteredAddress)
	assert.Equal(t, "WAPIAAAA42", out.Ref)
}

func TestVATVerifyInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"valid":false}`))
	}))
	defer srv.Close()

	a := NewVATAdapter(srv.URL, time.Second)
	out, err := a.Verify(context.Background(), Identifier{CountryCode: "GB", VATNumber: "123456789"})

	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, out.Status)
}

func TestVATMalformedInputSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"valid":true}`))
	}))
	defer srv.Close()

	a := NewVATAdapter(srv.URL, time.Second)
	out, err := a.Verify(context.Background(), Identifier{CountryCode: "12", VATNumber: "3456789"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAdapterInvalidInput))
	assert.Equal(t, StatusUnknown, out.Status)
	assert.Equal(t, int32(0), calls.Load(), "malformed identifiers must not reach the registry")
}

func TestVATServerErrorIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewVATAdapter(srv.URL, time.Second)
	out, err := a.Verify(context.Background(), Identifier{CountryCode: "DE", VATNumber: "123456789"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAdapterTransport))
	assert.Equal(t, StatusUnknown, out.Status)
	assert.Error(t, out.Err)
}

func TestVATTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"valid":true}`))
	}))
	defer srv.Close()

	a := NewVATAdapter(srv.URL, 20*time.Millisecond)
	out, err := a.Verify(context.Background(), Identifier{CountryCode: "DE", VATNumber: "123456789"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAdapterTimeout))
	assert.Equal(t, StatusUnknown, out.Status)
}
