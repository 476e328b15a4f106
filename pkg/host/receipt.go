package host

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/crosscall/pkg/domain"
)

// LogEntry is a note a contract left while running under a receipt.
type LogEntry struct {
	Account domain.AccountID `json:"account"`
	Message string           `json:"message"`
}

// String renders the entry the way the CLI prints it.
func (l LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", l.Account, l.Message)
}

// Receipt tracks one submitted transaction until its final outcome is known.
type Receipt struct {
	id string
	tx domain.Transaction

	done    chan struct{}
	outcome domain.Outcome
	err     error

	mu    sync.Mutex
	seq   int
	trace []domain.CallRecord
	logs  []LogEntry
}

func newReceipt(id string, tx domain.Transaction) *Receipt {
	return &Receipt{
		id:   id,
		tx:   tx,
		done: make(chan struct{}),
	}
}

// ID identifies the receipt.
func (r *Receipt) ID() string {
	return r.id
}

// Transaction returns the transaction this receipt answers.
func (r *Receipt) Transaction() domain.Transaction {
	return r.tx
}

// Done is closed once the final outcome is known.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the transaction resolves or ctx ends.
// The returned error is the failure of the call that produced the final outcome, if any.
func (r *Receipt) Wait(ctx context.Context) (domain.Outcome, error) {
	select {
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	case <-r.done:
		return r.outcome, r.err
	}
}

// Err returns the final error once resolved, nil before that.
func (r *Receipt) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Trace returns the executed calls ordered by start.
func (r *Receipt) Trace() []domain.CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.CallRecord, len(r.trace))
	copy(out, r.trace)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Logs returns the contract log lines in the order they were written.
func (r *Receipt) Logs() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]LogEntry, len(r.logs))
	copy(out, r.logs)
	return out
}

func (r *Receipt) nextSeq() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}

func (r *Receipt) record(rec domain.CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, rec)
}

func (r *Receipt) log(account domain.AccountID, msg string, args ...any) {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, LogEntry{Account: account, Message: b.String()})
}

func (r *Receipt) resolve(outcome domain.Outcome, err error) {
	r.outcome = outcome
	r.err = err
	close(r.done)
}
