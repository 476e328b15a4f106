package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/crosscall/internal/logging"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/host"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// AccountsURI is the resource listing deployed accounts.
const AccountsURI = "crosscall://accounts"

// Host is the part of the simulated host the MCP server drives.
type Host interface {
	Call(ctx context.Context, tx domain.Transaction) (domain.Outcome, *host.Receipt, error)
}

// Directory lists deployed accounts.
type Directory interface {
	Accounts() []domain.AccountID
}

// CallArgs are the arguments of the call tool.
type CallArgs struct {
	Account string `json:"account" jsonschema_description:"Account the method is deployed on"`
	Method  string `json:"method" jsonschema_description:"Method to invoke"`
	Args    string `json:"args,omitempty" jsonschema_description:"JSON object passed to the method"`
	Signer  string `json:"signer,omitempty" jsonschema_description:"Account signing the transaction"`
}

// CallResult aligns with the HTTP receipt body.
type CallResult struct {
	ReceiptID string               `json:"receipt_id" jsonschema_description:"Receipt of the transaction"`
	Status    domain.OutcomeStatus `json:"status" jsonschema_description:"success or failure"`
	Payload   string               `json:"payload,omitempty" jsonschema_description:"Encoded return value"`
	Error     string               `json:"error,omitempty" jsonschema_description:"Why the call failed"`
	Logs      []string             `json:"logs,omitempty" jsonschema_description:"Notes left by contracts"`
	Calls     int                  `json:"calls" jsonschema_description:"Number of calls executed"`
}

// Server exposes a host as an MCP server.
type Server struct {
	host          Host
	dir           Directory
	defaultSigner domain.AccountID
	logger        *slog.Logger
	mcpServer     *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDefaultSigner signs calls that do not name a signer.
func WithDefaultSigner(signer domain.AccountID) Option {
	return func(s *Server) {
		s.defaultSigner = signer
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(h Host, dir Directory, version string, opts ...Option) *Server {
	s := &Server{
		host:          h,
		dir:           dir,
		defaultSigner: "mcp.test",
		logger:        logging.NewNop(),
		mcpServer:     server.NewMCPServer("crosscall-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on port until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	callTool := mcp.NewTool("call",
		mcp.WithDescription("Submit a transaction to an account and wait for its final outcome, including any deferred continuation."),
		mcp.WithString("account", mcp.Required(), mcp.Description("Account the method is deployed on")),
		mcp.WithString("method", mcp.Required(), mcp.Description("Method to invoke")),
		mcp.WithString("args", mcp.Description("JSON object passed to the method (optional)")),
		mcp.WithString("signer", mcp.Description("Account signing the transaction (optional)")),
		mcp.WithOutputSchema[CallResult](),
	)
	s.mcpServer.AddTool(callTool, mcp.NewStructuredToolHandler(s.handleCall))

	s.mcpServer.AddTool(mcp.NewTool("list_accounts",
		mcp.WithDescription("List the accounts that have a contract deployed."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.dir.Accounts())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleCall(ctx context.Context, request mcp.CallToolRequest, args CallArgs) (CallResult, error) {
	if args.Account == "" || args.Method == "" {
		return CallResult{}, fmt.Errorf("account and method are required: %w", domain.ErrInvalidArgs)
	}
	if args.Args != "" && !json.Valid([]byte(args.Args)) {
		return CallResult{}, fmt.Errorf("args is not valid JSON: %w", domain.ErrInvalidArgs)
	}

	signer := domain.AccountID(args.Signer)
	if signer == "" {
		signer = s.defaultSigner
	}

	outcome, receipt, err := s.host.Call(ctx, domain.Transaction{
		Signer:   signer,
		Receiver: domain.AccountID(args.Account),
		Method:   args.Method,
		Args:     args.Args,
	})
	if receipt == nil {
		// Rejected before a receipt existed.
		return CallResult{}, err
	}

	res := CallResult{
		ReceiptID: receipt.ID(),
		Status:    outcome.Status,
		Payload:   outcome.Payload,
		Calls:     len(receipt.Trace()),
	}
	if err != nil {
		res.Error = err.Error()
		s.logger.Debug("MCP call failed", "receipt", receipt.ID(), "err", err)
	}
	for _, l := range receipt.Logs() {
		res.Logs = append(res.Logs, l.String())
	}
	return res, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(AccountsURI, "Deployed Accounts",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.dir.Accounts())
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      AccountsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
