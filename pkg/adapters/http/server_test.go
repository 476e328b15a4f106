package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/crosscall"
	adapter "github.com/aretw0/crosscall/pkg/adapters/http"
	"github.com/aretw0/crosscall/pkg/contract"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/host"
	"github.com/aretw0/crosscall/pkg/registry"
	"github.com/aretw0/crosscall/pkg/services/greeting"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*crosscall.Deployment, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := host.NewMetrics(reg)
	require.NoError(t, err)

	streams := adapter.NewStreamManager(nil)
	d := crosscall.New(crosscall.WithHostOptions(
		host.WithMetrics(metrics),
		host.WithHooks(adapter.StreamHooks(streams)),
	))
	srv := adapter.NewServer(d.Host, d.Registry, adapter.WithMetrics(reg), adapter.WithStreams(streams))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return d, ts
}

func post(t *testing.T, url string, body any) (*http.Response, adapter.ReceiptResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out adapter.ReceiptResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func callURL(ts *httptest.Server, account domain.AccountID, method string) string {
	return fmt.Sprintf("%s/v1/accounts/%s/call/%s", ts.URL, account, method)
}

func TestServer_Health(t *testing.T) {
	_, ts := newServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Accounts(t *testing.T) {
	_, ts := newServer(t)

	resp, err := http.Get(ts.URL + "/v1/accounts")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out adapter.AccountsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []domain.AccountID{crosscall.DefaultHelloAccount, crosscall.DefaultSelf}, out.Accounts, "sorted")
}

func TestServer_CallFlow(t *testing.T) {
	d, ts := newServer(t)
	self := d.Self()

	resp, out := post(t, callURL(ts, self, contract.MethodQueryGreeting), adapter.CallRequest{Signer: "alice.test"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "not initialized yet")
	assert.Contains(t, out.Error, domain.ErrNotInitialized.Error())

	resp, _ = post(t, callURL(ts, self, contract.MethodInit), adapter.CallRequest{
		Signer: "alice.test",
		Args:   json.RawMessage(`{"hello_account":"hello.test"}`),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out = post(t, callURL(ts, self, contract.MethodMultipleContracts), adapter.CallRequest{Signer: "alice.test"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Done)
	assert.Equal(t, domain.StatusSuccess, out.Status)
	assert.JSONEq(t, `["\"Hello\"","\"Hello\"","\"Hello\""]`, string(out.Payload))
	assert.NotEmpty(t, out.Trace)

	resp, out = post(t, callURL(ts, self, contract.MethodQueryGreetingCallback), adapter.CallRequest{Signer: "alice.test"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, domain.StatusFailure, out.Status)
}

func TestServer_AsyncReceipt(t *testing.T) {
	d, ts := newServer(t)
	require.NoError(t, d.Init(context.Background(), "alice.test"))

	resp, out := post(t, callURL(ts, d.Self(), contract.MethodQueryGreeting), adapter.CallRequest{Signer: "alice.test", Async: true})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, out.ReceiptID)
	assert.Equal(t, d.Self(), out.Target)
	assert.Equal(t, contract.MethodQueryGreeting, out.Method)

	assert.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/v1/receipts/" + out.ReceiptID)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var got adapter.ReceiptResponse
		if json.NewDecoder(resp.Body).Decode(&got) != nil {
			return false
		}
		return got.Done && string(got.Payload) == `"Hello"`
	}, 2*time.Second, 20*time.Millisecond)

	resp2, err := http.Get(ts.URL + "/v1/receipts/unknown")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestServer_BadBody(t *testing.T) {
	d, ts := newServer(t)

	resp, err := http.Post(callURL(ts, d.Self(), contract.MethodInit), "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SelfSignedRejected(t *testing.T) {
	d, ts := newServer(t)
	require.NoError(t, d.Init(context.Background(), "alice.test"))

	resp, out := post(t, callURL(ts, d.Self(), contract.MethodQueryGreetingCallback), adapter.CallRequest{Signer: d.Self()})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, out.Error, domain.ErrUnauthorized.Error())
	assert.Empty(t, out.ReceiptID, "no receipt is created")
}

func TestServer_Metrics(t *testing.T) {
	d, ts := newServer(t)
	require.NoError(t, d.Init(context.Background(), "alice.test"))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var found bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "crosscall_calls_total") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestServer_Events(t *testing.T) {
	d, ts := newServer(t)
	require.NoError(t, d.Init(context.Background(), "alice.test"))

	_, out := post(t, callURL(ts, d.Self(), contract.MethodQueryGreeting), adapter.CallRequest{Signer: "alice.test", Async: true})

	resp, err := http.Get(ts.URL + "/v1/receipts/" + out.ReceiptID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Whatever was published before subscribing is gone; the stream still ends with done.
	var last string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			last = line
		}
	}
	assert.Equal(t, "data: "+out.ReceiptID, last)
}

func TestStreamHooks(t *testing.T) {
	sm := adapter.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("r1")
	defer cancel()

	hooks := adapter.StreamHooks(sm)
	hooks.OnCallStart(context.Background(), &domain.CallEvent{
		EventBase: domain.EventBase{Type: domain.EventCallStart, ReceiptID: "r1"},
		Call:      domain.Call{Target: "hello.test", Method: "get_greeting"},
	})
	hooks.OnCallStart(context.Background(), &domain.CallEvent{
		EventBase: domain.EventBase{Type: domain.EventCallStart, ReceiptID: "other"},
	})

	select {
	case msg := <-ch:
		assert.Contains(t, msg, `"get_greeting"`)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	assert.Empty(t, ch, "events of other receipts are not delivered")
}

func TestRemoteContract(t *testing.T) {
	// The greeting service runs behind its own server.
	svc := greeting.New()
	remoteReg := registry.NewRegistry()
	remoteReg.Deploy("hello.test", svc)
	remoteHost := host.New(remoteReg)
	ts := httptest.NewServer(adapter.NewServer(remoteHost, remoteReg).Handler())
	defer ts.Close()

	d := crosscall.New(crosscall.WithGreeter(adapter.NewRemoteContract(ts.URL, "hello.test")))
	ctx := context.Background()
	require.NoError(t, d.Init(ctx, "alice.test"))

	ok, _, err := d.ChangeGreeting(ctx, "alice.test", "Howdy")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Howdy", svc.Greeting())

	got, _, err := d.QueryGreeting(ctx, "alice.test")
	require.NoError(t, err)
	assert.Equal(t, "Howdy", got)

	svc.SetAvailable(false)
	got, _, err = d.QueryGreeting(ctx, "alice.test")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrAlreadyInitialized, http.StatusConflict},
		{domain.ErrInvalidArgs, http.StatusBadRequest},
		{domain.ErrGasExhausted, http.StatusPaymentRequired},
		{&domain.CallError{Target: "x", Method: "y", Err: errors.New("boom")}, http.StatusUnprocessableEntity},
		{errors.New("store down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, adapter.StatusFor(tt.err), "%v", tt.err)
	}
}
