// Package ledger keeps the append-only history of a browsing session.
//
// Records are plain text. Findings and user interventions are told apart from
// ordinary action records by their prefix.
package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/entrhq/scout/pkg/llm/tokenizer"
)

// Record prefixes.
const (
	FindingPrefix      = "Finding: "
	InterventionPrefix = "USER INTERVENTION: "
)

// Ledger is an append-only sequence of records. Records are never removed;
// only the transcript handed to the planner is bounded. The owning session is
// the only writer, but snapshots may be taken from other goroutines.
type Ledger struct {
	counter tokenizer.Counter
	records []string
	mu      sync.RWMutex
}

// New creates an empty ledger. A nil counter falls back to estimates.
func New(counter tokenizer.Counter) *Ledger {
	if counter == nil {
		counter = estimator{}
	}
	return &Ledger{counter: counter}
}

// Append adds a plain record.
func (l *Ledger) Append(record string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// Appendf adds a formatted plain record.
func (l *Ledger) Appendf(format string, args ...interface{}) {
	l.Append(fmt.Sprintf(format, args...))
}

// AppendFinding adds a finding record.
func (l *Ledger) AppendFinding(text string) {
	l.Append(FindingPrefix + text)
}

// AppendIntervention adds a user intervention record.
func (l *Ledger) AppendIntervention(text string) {
	l.Append(InterventionPrefix + text)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Records returns a copy of all records in order.
func (l *Ledger) Records() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.records...)
}

// Findings returns the text of every finding, prefix removed, in order.
func (l *Ledger) Findings() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []string
	for _, r := range l.records {
		if strings.HasPrefix(r, FindingPrefix) {
			out = append(out, strings.TrimPrefix(r, FindingPrefix))
		}
	}
	return out
}

// IsFinding reports whether record is a finding.
func IsFinding(record string) bool {
	return strings.HasPrefix(record, FindingPrefix)
}

// IsIntervention reports whether record is a user intervention.
func IsIntervention(record string) bool {
	return strings.HasPrefix(record, InterventionPrefix)
}

// Transcript renders the most recent records that fit in maxTokens, oldest
// first, one per line. When older records are left out the first line says
// how many. maxTokens <= 0 renders everything.
func (l *Ledger) Transcript(maxTokens int) string {
	return Transcript(l.Records(), maxTokens, l.counter)
}

// Transcript renders records the same way as Ledger.Transcript.
func Transcript(records []string, maxTokens int, counter tokenizer.Counter) string {
	if len(records) == 0 {
		return ""
	}
	if counter == nil {
		counter = estimator{}
	}

	start := 0
	if maxTokens > 0 {
		used := 0
		start = len(records)
		for start > 0 {
			cost := counter.CountTokens(records[start-1]) + 1
			if used+cost > maxTokens {
				break
			}
			used += cost
			start--
		}
	}

	var b strings.Builder
	if start > 0 {
		fmt.Fprintf(&b, "(%d earlier entries omitted)\n", start)
	}
	for i := start; i < len(records); i++ {
		fmt.Fprintf(&b, "%d. %s\n", i+1, records[i])
	}
	return b.String()
}

type estimator struct{}

func (estimator) CountTokens(text string) int {
	return tokenizer.Estimate(text)
}
