// Package credentials tracks a fixed set of API credentials and hands out
// the least-used one per request. Pure bookkeeping, no I/O.
package credentials

import (
	"strings"
	"sync"

	"github.com/adewale-ajadi/exam-extractor/internal/common"
)

// Credential is an opaque authorization token for the external model API.
// Identity is the string value itself.
type Credential string

// Pool balances usage across a fixed credential set. Counts live for the
// process lifetime and reset only on restart. A Pool is constructed once
// per run and threaded through by reference, never held as global state.
type Pool struct {
	mu    sync.Mutex
	creds []Credential
	usage map[Credential]int
}

// NewPool builds a pool from raw key strings, dropping blanks and
// duplicates while preserving the configured order. An empty usable set is
// a configuration error.
func NewPool(keys []string) (*Pool, error) {
	creds := make([]Credential, 0, len(keys))
	usage := make(map[Credential]int, len(keys))
	for _, k := range keys {
		trimmed := strings.TrimSpace(k)
		if trimmed == "" {
			continue
		}
		c := Credential(trimmed)
		if _, seen := usage[c]; seen {
			continue
		}
		creds = append(creds, c)
		usage[c] = 0
	}
	if len(creds) == 0 {
		return nil, common.ErrNoCredentials
	}
	return &Pool{creds: creds, usage: usage}, nil
}

// Acquire returns the credential with the lowest usage count, ties broken
// by configured order, and counts the grant immediately. Incrementing at
// acquisition rather than at response time is deliberate: a cancelled
// in-flight call still spent external quota.
func (p *Pool) Acquire() Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := p.creds[0]
	for _, c := range p.creds[1:] {
		if p.usage[c] < p.usage[best] {
			best = c
		}
	}
	p.usage[best]++
	return best
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.creds)
}

// UsageSnapshot returns a copy of the current usage counts.
func (p *Pool) UsageSnapshot() map[Credential]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[Credential]int, len(p.usage))
	for c, n := range p.usage {
		out[c] = n
	}
	return out
}
