package http

import (
	"context"
	"encoding/json"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/host"
)

// CallRequest is the body of POST /v1/accounts/{account}/call/{method}.
type CallRequest struct {
	Signer  domain.AccountID `json:"signer"`
	Args    json.RawMessage  `json:"args,omitempty"`
	Deposit uint64           `json:"deposit,omitempty"`
	Gas     domain.Gas       `json:"gas,omitempty"`

	// Async answers 202 with the receipt id instead of waiting for the outcome.
	Async bool `json:"async,omitempty"`
}

// ReceiptResponse describes a receipt, resolved or not.
type ReceiptResponse struct {
	ReceiptID string               `json:"receipt_id"`
	Target    domain.AccountID     `json:"target"`
	Method    string               `json:"method"`
	Done      bool                 `json:"done"`
	Status    domain.OutcomeStatus `json:"status,omitempty"`
	Payload   json.RawMessage      `json:"payload,omitempty"`
	Error     string               `json:"error,omitempty"`
	Trace     []domain.CallRecord  `json:"trace,omitempty"`
	Logs      []host.LogEntry      `json:"logs,omitempty"`
}

// AccountsResponse is the body of GET /v1/accounts.
type AccountsResponse struct {
	Accounts []domain.AccountID `json:"accounts"`
}

// ErrorResponse is the body of every non-2xx answer that has no receipt.
type ErrorResponse struct {
	Error string `json:"error"`
}

func receiptResponse(r *host.Receipt) ReceiptResponse {
	tx := r.Transaction()
	resp := ReceiptResponse{ReceiptID: r.ID(), Target: tx.Receiver, Method: tx.Method}
	select {
	case <-r.Done():
	default:
		return resp
	}

	outcome, err := r.Wait(context.Background())
	resp.Done = true
	resp.Status = outcome.Status
	if outcome.Payload != "" && json.Valid([]byte(outcome.Payload)) {
		resp.Payload = json.RawMessage(outcome.Payload)
	} else if outcome.Payload != "" {
		resp.Payload, _ = json.Marshal(outcome.Payload)
	}
	if err != nil {
		resp.Error = err.Error()
	}
	resp.Trace = r.Trace()
	resp.Logs = r.Logs()
	return resp
}
