package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/paymux/gateway/internal/domain"
)

// RazorpayCredentials come from the environment.
type RazorpayCredentials struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// RazorpayAdapter drives the Razorpay orders API. One order per payment
// attempt, receipt set to the payment id for reconciliation.
type RazorpayAdapter struct {
	client *http.Client
	creds  RazorpayCredentials
	log    *slog.Logger
}

func NewRazorpayAdapter(client *http.Client, creds RazorpayCredentials, log *slog.Logger) *RazorpayAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	if creds.BaseURL == "" {
		creds.BaseURL = "https://api.razorpay.com"
	}
	if log == nil {
		log = slog.Default()
	}
	return &RazorpayAdapter{client: client, creds: creds, log: log}
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (r *RazorpayAdapter) InitiatePayment(ctx context.Context, pc domain.PaymentContext, req domain.CreatePaymentRequest) (Response, error) {
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  pc.PaymentID.String(),
	})
	if err != nil {
		return Response{}, fmt.Errorf("razorpay: encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.creds.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("razorpay: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(r.creds.KeyID, r.creds.KeySecret)

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return TimeoutResponse(), nil
		}
		return Response{}, fmt.Errorf("razorpay: request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("razorpay: read response: %w", err)
	}

	var order razorpayOrderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		r.log.Warn("razorpay response not decodable", "status", httpResp.StatusCode, "err", err)
	}
	wire := fmt.Sprintf("%d", httpResp.StatusCode)

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		txn := order.ID
		return Response{
			Status:              domain.StatusSuccess,
			TransactionID:       &txn,
			GatewayResponseCode: &wire,
		}, nil
	}

	code, msg := "RAZORPAY_ERROR", "order creation failed"
	if order.Error != nil {
		if order.Error.Code != "" {
			code = order.Error.Code
		}
		if order.Error.Description != "" {
			msg = order.Error.Description
		}
	}
	return Response{
		Status:              domain.StatusFailure,
		ErrorCode:           &code,
		ErrorMessage:        &msg,
		GatewayResponseCode: &wire,
	}, nil
}
