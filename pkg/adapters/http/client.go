package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
)

// RemoteContract forwards invocations to an account served by another host.
// It lets the greeting service live in a separate process.
type RemoteContract struct {
	BaseURL string
	Account domain.AccountID
	Client  *http.Client
}

var _ ports.Contract = (*RemoteContract)(nil)

// NewRemoteContract points at account on the server at baseURL.
func NewRemoteContract(baseURL string, account domain.AccountID) *RemoteContract {
	return &RemoteContract{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Account: account,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Invoke implements ports.Contract. The caller's account signs the remote transaction.
func (c *RemoteContract) Invoke(ctx context.Context, env ports.Env, method string, args string) (domain.Return, error) {
	body := CallRequest{
		Signer: env.Predecessor(),
		Gas:    env.PrepaidGas(),
	}
	if args != "" {
		body.Args = json.RawMessage(args)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return domain.Return{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgs, err)
	}

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/call/%s", c.BaseURL, url.PathEscape(string(c.Account)), url.PathEscape(method))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return domain.Return{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return domain.Return{}, fmt.Errorf("remote %s: %w", c.Account, err)
	}
	defer resp.Body.Close()

	var out ReceiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Return{}, fmt.Errorf("remote %s: failed to decode response: %w", c.Account, err)
	}

	if resp.StatusCode != http.StatusOK || out.Status != domain.StatusSuccess {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		return domain.Return{}, fmt.Errorf("remote %s.%s: %s", c.Account, method, msg)
	}
	for _, l := range out.Logs {
		env.Log(l.Message, "remote", l.Account)
	}
	return domain.RawValue(string(out.Payload)), nil
}
