package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "c@example.com", body["email"])
		assert.Equal(t, "ref-1", body["reference"])

		w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"ac_x","reference":"ref-1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	resp, err := c.InitializeCharge(context.Background(), 150000, "c@example.com", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", resp.AuthorizationURL)
	assert.Equal(t, "ref-1", resp.Reference)
}

func TestVerifyCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref-1", r.URL.Path)
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","amount":150000,"reference":"ref-1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	status, err := c.VerifyCharge(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "success", status.Status)
	assert.Equal(t, int64(150000), status.AmountCents)
}

func TestCreateRecipient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transferrecipient", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nuban", body["type"])
		assert.Equal(t, "NGN", body["currency"])
		assert.Equal(t, "0123456789", body["account_number"])

		w.Write([]byte(`{"status":true,"message":"Transfer recipient created","data":{"recipient_code":"RCP_abc"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	code, err := c.CreateRecipient(context.Background(), "Agent Person", "058", "0123456789")
	require.NoError(t, err)
	assert.Equal(t, "RCP_abc", code)
}

func TestInitiateTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfer", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "balance", body["source"])
		assert.Equal(t, "RCP_abc", body["recipient"])

		w.Write([]byte(`{"status":true,"message":"Transfer queued","data":{"transfer_code":"TRF_123"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	code, err := c.InitiateTransfer(context.Background(), 5000, "RCP_abc", "wd-ref-1")
	require.NoError(t, err)
	assert.Equal(t, "TRF_123", code)
}

func TestVerifyTransfer_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":false,"message":"Transfer not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	_, err := c.VerifyTransfer(context.Background(), "wd-ref-x")
	assert.ErrorIs(t, err, ErrTransferNotFound)
}

func TestVerifyTransfer_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfer/verify/wd-ref-1", r.URL.Path)
		w.Write([]byte(`{"status":true,"message":"Transfer retrieved","data":{"status":"pending","transfer_code":"TRF_123","reference":"wd-ref-1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	status, err := c.VerifyTransfer(context.Background(), "wd-ref-1")
	require.NoError(t, err)
	assert.Equal(t, "TRF_123", status.TransferCode)
}

func TestDo_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	_, err := c.VerifyCharge(context.Background(), "ref-1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestDo_ClientErrorIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":false,"message":"Invalid amount"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	_, err := c.InitializeCharge(context.Background(), -5, "c@example.com", "ref-1")
	assert.ErrorIs(t, err, ErrGatewayRejected)
}

func TestDo_FalseEnvelopeStatusIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":false,"message":"Insufficient balance"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	_, err := c.InitiateTransfer(context.Background(), 5000, "RCP_abc", "wd-ref-1")
	assert.ErrorIs(t, err, ErrGatewayRejected)
}

func TestDo_ConnectionFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")

	_, err := c.VerifyCharge(context.Background(), "ref-1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
