package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/crosscall/internal/logging"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/host"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Host is the part of the simulated host the server drives.
type Host interface {
	Submit(ctx context.Context, tx domain.Transaction) (*host.Receipt, error)
}

// Directory lists deployed accounts.
type Directory interface {
	Accounts() []domain.AccountID
}

// Server exposes a host over HTTP.
type Server struct {
	Host      Host
	Directory Directory
	Streams   *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer

	mu       sync.RWMutex
	receipts map[string]*host.Receipt
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares sm with the host hooks built by StreamHooks.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer creates a server. Event streams stay silent unless the host runs StreamHooks.
func NewServer(h Host, dir Directory, opts ...Option) *Server {
	s := &Server{
		Host:      h,
		Directory: dir,
		Streams:   NewStreamManager(nil),
		logger:    logging.NewNop(),
		receipts:  make(map[string]*host.Receipt),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/accounts", s.ListAccounts)
		r.Post("/accounts/{account}/call/{method}", s.CallMethod)
		r.Get("/receipts/{id}", s.GetReceipt)
		r.Get("/receipts/{id}/events", s.SubscribeEvents)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListAccounts handles GET /v1/accounts.
func (s *Server) ListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AccountsResponse{Accounts: s.Directory.Accounts()})
}

// CallMethod handles POST /v1/accounts/{account}/call/{method}.
func (s *Server) CallMethod(w http.ResponseWriter, r *http.Request) {
	var body CallRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		s.logger.Warn("CallMethod: invalid request body", "err", err)
		return
	}

	tx := domain.Transaction{
		Signer:   body.Signer,
		Receiver: domain.AccountID(chi.URLParam(r, "account")),
		Method:   chi.URLParam(r, "method"),
		Args:     string(body.Args),
		Deposit:  body.Deposit,
		Gas:      body.Gas,
	}

	receipt, err := s.Host.Submit(r.Context(), tx)
	if err != nil {
		writeJSON(w, StatusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	s.track(receipt)

	if body.Async {
		writeJSON(w, http.StatusAccepted, receiptResponse(receipt))
		return
	}

	if _, err := receipt.Wait(r.Context()); err != nil && r.Context().Err() != nil {
		// Client went away; the receipt keeps running and stays queryable.
		return
	}

	status := http.StatusOK
	if err := receipt.Err(); err != nil {
		status = StatusFor(err)
		s.logger.Debug("CallMethod: call failed", "receipt", receipt.ID(), "err", err)
	}
	writeJSON(w, status, receiptResponse(receipt))
}

// GetReceipt handles GET /v1/receipts/{id}.
func (s *Server) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, ok := s.receipt(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "receipt not found"})
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse(receipt))
}

// SubscribeEvents handles GET /v1/receipts/{id}/events (SSE).
// Events are the host's call and plan events for that receipt.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var done <-chan struct{}
	if receipt, ok := s.receipt(id); ok {
		done = receipt.Done()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			fmt.Fprintf(w, "event: done\ndata: %s\n\n", id)
			flusher.Flush()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// StreamHooks returns lifecycle hooks that publish host events to the receipt streams of sm.
func StreamHooks(sm *StreamManager) domain.LifecycleHooks {
	publish := func(id string, v any) {
		if data, err := json.Marshal(v); err == nil {
			sm.Broadcast(id, string(data))
		}
	}
	return domain.LifecycleHooks{
		OnCallStart:     func(ctx context.Context, e *domain.CallEvent) { publish(e.ReceiptID, e) },
		OnCallResolved:  func(ctx context.Context, e *domain.CallEvent) { publish(e.ReceiptID, e) },
		OnPlanScheduled: func(ctx context.Context, e *domain.PlanEvent) { publish(e.ReceiptID, e) },
		OnContinuation:  func(ctx context.Context, e *domain.PlanEvent) { publish(e.ReceiptID, e) },
	}
}

func (s *Server) track(r *host.Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[r.ID()] = r
}

func (s *Server) receipt(id string) (*host.Receipt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	return r, ok
}

// StatusFor maps an error to the HTTP status the server answers with.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrMethodNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyInitialized), errors.Is(err, domain.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidArgs), errors.Is(err, domain.ErrInvalidCall), errors.Is(err, domain.ErrInvalidBudget):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGasExhausted):
		return http.StatusPaymentRequired
	case host.IsHostFault(err):
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
