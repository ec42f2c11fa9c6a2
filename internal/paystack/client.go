package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrGatewayUnavailable covers timeouts, connection failures and 5xx
	// responses. The outcome of the attempted operation is unknown; callers
	// must treat it as retryable, not as failed.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayRejected covers 4xx responses. The gateway understood the
	// request and refused it; retrying the same request will not help.
	ErrGatewayRejected = errors.New("payment gateway rejected request")

	ErrTransferNotFound = errors.New("transfer not found")
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: defaultTimeout},
	}
}

type InitializeChargeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type ChargeStatus struct {
	Status      string
	AmountCents int64
	Reference   string
}

type TransferStatus struct {
	Status       string
	TransferCode string
	Reference    string
}

// apiEnvelope is Paystack's standard response wrapper.
type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeCharge starts a charge for the given amount. The reference is
// ours, passed through so webhook events correlate back to the payment row.
func (c *Client) InitializeCharge(ctx context.Context, amountCents int64, email, reference string) (*InitializeChargeResponse, error) {
	body := map[string]interface{}{
		"amount":    amountCents,
		"email":     email,
		"reference": reference,
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := c.post(ctx, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}

	return &InitializeChargeResponse{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// VerifyCharge fetches the charge state directly from the gateway. Used to
// confirm webhook events instead of trusting their payloads.
func (c *Client) VerifyCharge(ctx context.Context, reference string) (*ChargeStatus, error) {
	var data struct {
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
	}
	if err := c.get(ctx, "/transaction/verify/"+url.PathEscape(reference), &data); err != nil {
		return nil, err
	}

	return &ChargeStatus{
		Status:      data.Status,
		AmountCents: data.Amount,
		Reference:   data.Reference,
	}, nil
}

// CreateRecipient registers a bank account as a payout destination and
// returns the gateway's recipient handle.
func (c *Client) CreateRecipient(ctx context.Context, name, bankCode, accountNumber string) (string, error) {
	body := map[string]interface{}{
		"type":           "nuban",
		"name":           name,
		"bank_code":      bankCode,
		"account_number": accountNumber,
		"currency":       "NGN",
	}

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.post(ctx, "/transferrecipient", body, &data); err != nil {
		return "", err
	}

	return data.RecipientCode, nil
}

// InitiateTransfer asks the gateway to pay out to a recipient. The reference
// is ours and is what transfer webhooks will carry back.
func (c *Client) InitiateTransfer(ctx context.Context, amountCents int64, recipientCode, reference string) (string, error) {
	body := map[string]interface{}{
		"source":    "balance",
		"amount":    amountCents,
		"recipient": recipientCode,
		"reference": reference,
	}

	var data struct {
		TransferCode string `json:"transfer_code"`
	}
	if err := c.post(ctx, "/transfer", body, &data); err != nil {
		return "", err
	}

	return data.TransferCode, nil
}

// VerifyTransfer looks a transfer up by our reference. Used after a timed-out
// initiation to decide whether the transfer actually exists before the caller
// compensates or retries; returns ErrTransferNotFound when the gateway has no
// transfer under the reference.
func (c *Client) VerifyTransfer(ctx context.Context, reference string) (*TransferStatus, error) {
	var data struct {
		Status       string `json:"status"`
		TransferCode string `json:"transfer_code"`
		Reference    string `json:"reference"`
	}
	err := c.get(ctx, "/transfer/verify/"+url.PathEscape(reference), &data)
	if err != nil {
		if errors.Is(err, ErrGatewayRejected) {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}

	return &TransferStatus{
		Status:       data.Status,
		TransferCode: data.TransferCode,
		Reference:    data.Reference,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, truncate(raw, 200))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrGatewayUnavailable, err)
	}
	if !envelope.Status {
		return fmt.Errorf("%w: %s", ErrGatewayRejected, envelope.Message)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: malformed response data: %v", ErrGatewayUnavailable, err)
		}
	}

	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
