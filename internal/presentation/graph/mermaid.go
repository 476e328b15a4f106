package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/crosscall/pkg/domain"
)

// GenerateSequence produces a Mermaid sequence diagram from a receipt trace.
// Records are drawn in start order:
// - Request: predecessor ->> target with the method name
// - Success reply: target -->> predecessor with the gas burnt
// - Failure reply: target --x predecessor with the error, if any
// Calls an account makes to itself are continuations and get a note.
func GenerateSequence(trace []domain.CallRecord) string {
	var sb strings.Builder
	sb.WriteString("sequenceDiagram\n")

	seen := make(map[domain.AccountID]bool)
	participant := func(id domain.AccountID) {
		if seen[id] || id == "" {
			return
		}
		seen[id] = true
		sb.WriteString(fmt.Sprintf("    participant %s as %s\n", sanitizeMermaidID(string(id)), id))
	}
	for _, rec := range trace {
		participant(rec.Predecessor)
		participant(rec.Call.Target)
	}

	for _, rec := range trace {
		from := sanitizeMermaidID(string(rec.Predecessor))
		to := sanitizeMermaidID(string(rec.Call.Target))

		if rec.Predecessor == rec.Call.Target {
			sb.WriteString(fmt.Sprintf("    Note over %s: continuation\n", to))
		}
		sb.WriteString(fmt.Sprintf("    %s->>%s: %s\n", from, to, rec.Call.Method))

		if rec.Status == domain.StatusSuccess {
			sb.WriteString(fmt.Sprintf("    %s-->>%s: ok (gas %d)\n", to, from, rec.GasBurnt))
			continue
		}
		label := "failure"
		if rec.Error != "" {
			// Mermaid ends a message at ';' and '#'.
			label = strings.NewReplacer(";", ",", "#", "").Replace(rec.Error)
		}
		sb.WriteString(fmt.Sprintf("    %s--x%s: %s\n", to, from, label))
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
