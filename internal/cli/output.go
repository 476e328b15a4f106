package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/host"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Result is the JSON shape the call command prints.
type Result struct {
	ReceiptID string               `json:"receipt_id,omitempty"`
	Method    string               `json:"method"`
	Status    domain.OutcomeStatus `json:"status,omitempty"`
	Payload   json.RawMessage      `json:"payload,omitempty"`
	Error     string               `json:"error,omitempty"`
	Trace     []domain.CallRecord  `json:"trace,omitempty"`
	Logs      []string             `json:"logs,omitempty"`
}

// NewResult summarizes a finished transaction.
func NewResult(method string, outcome domain.Outcome, r *host.Receipt, err error) Result {
	res := Result{Method: method}
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Status = outcome.Status
		res.Payload = rawPayload(outcome.Payload)
	}
	if r == nil {
		return res
	}
	res.ReceiptID = r.ID()
	res.Trace = r.Trace()
	for _, l := range r.Logs() {
		res.Logs = append(res.Logs, l.String())
	}
	return res
}

func rawPayload(payload string) json.RawMessage {
	if payload == "" {
		return nil
	}
	if json.Valid([]byte(payload)) {
		return json.RawMessage(payload)
	}
	quoted, _ := json.Marshal(payload)
	return quoted
}

// Printer renders results for a terminal, or as JSON when output is piped.
type Printer struct {
	w       io.Writer
	json    bool
	profile termenv.Profile
}

// NewPrinter picks colored text when w is a terminal and JSON otherwise.
// forceJSON always selects JSON.
func NewPrinter(w io.Writer, forceJSON bool) *Printer {
	p := &Printer{w: w, json: true, profile: termenv.Ascii}
	if forceJSON {
		return p
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.json = false
		p.profile = termenv.ColorProfile()
	}
	return p
}

// Print writes res.
func (p *Printer) Print(res Result) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	var b strings.Builder
	switch {
	case res.Error != "":
		fmt.Fprintf(&b, "%s %s: %s\n", p.paint("✗", "#fb7185"), res.Method, res.Error)
	case res.Status == domain.StatusSuccess:
		fmt.Fprintf(&b, "%s %s -> %s\n", p.paint("✓", "#34d399"), res.Method, string(res.Payload))
	default:
		fmt.Fprintf(&b, "%s %s failed\n", p.paint("✗", "#fb7185"), res.Method)
	}

	for _, rec := range res.Trace {
		status := p.paint(string(rec.Status), "#34d399")
		if rec.Status != domain.StatusSuccess {
			status = p.paint(string(rec.Status), "#fb7185")
		}
		fmt.Fprintf(&b, "  %s %s.%s %s gas=%d\n",
			p.profile.String(fmt.Sprintf("#%d", rec.Seq)).Faint(),
			rec.Call.Target, rec.Call.Method, status, rec.GasBurnt)
	}
	for _, l := range res.Logs {
		fmt.Fprintf(&b, "  %s\n", p.profile.String(l).Faint())
	}
	if res.ReceiptID != "" {
		fmt.Fprintf(&b, "  %s\n", p.profile.String("receipt "+res.ReceiptID).Faint())
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Printer) paint(s, hex string) termenv.Style {
	return p.profile.String(s).Foreground(p.profile.Color(hex))
}
