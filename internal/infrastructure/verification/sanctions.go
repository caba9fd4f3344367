package verification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
)

// KeywordList is one named sanctions list with its flagged terms.  List
// contents are operator-supplied configuration; the engine hardcodes no
// entity names.
type KeywordList struct {
	Name     string
	Keywords []string
}

// SanctionsAdapter screens a counterparty's display name against maintained
// keyword lists using deterministic case-insensitive substring matching.  A
// match is always flagged; there is no confidence scoring to suppress it.
//
// The lists live in an explicitly owned, lock-guarded table so the worker
// can swap them on config reload without a restart.
type SanctionsAdapter struct {
	mu    sync.RWMutex
	lists []KeywordList
}

// NewSanctionsAdapter constructs a screener over the given lists.
func NewSanctionsAdapter(lists []KeywordList) *SanctionsAdapter {
	a := &SanctionsAdapter{}
	a.UpdateLists(lists)
	return a
}

func (a *SanctionsAdapter) Source() counterparty.Source { return counterparty.SourceSanctions }

// UpdateLists atomically replaces the screening lists.  Keywords are
// lower-cased once here so Verify stays allocation-light.
func (a *SanctionsAdapter) UpdateLists(lists []KeywordList) {
	normalized := make([]KeywordList, 0, len(lists))
	for _, l := range lists {
		nl := KeywordList{Name: l.Name, Keywords: make([]string, 0, len(l.Keywords))}
		for _, kw := range l.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				nl.Keywords = append(nl.Keywords, kw)
			}
		}
		normalized = append(normalized, nl)
	}

	a.mu.Lock()
	a.lists = normalized
	a.mu.Unlock()
}

// Verify screens the display name.  No match is valid; any match is invalid
// with the matched list names attached.  Screening is local and never fails.
func (a *SanctionsAdapter) Verify(_ context.Context, id Identifier) (Outcome, error) {
	start := time.Now()
	name := strings.ToLower(id.DisplayName)

	a.mu.RLock()
	lists := a.lists
	a.mu.RUnlock()

	var matched []string
	for _, l := range lists {
		for _, kw := range l.Keywords {
			if strings.Contains(name, kw) {
				matched = append(matched, l.Name)
				break
			}
		}
	}

	out := Outcome{
		Source:       counterparty.SourceSanctions,
		Status:       StatusValid,
		MatchedLists: matched,
		Latency:      time.Since(start),
	}
	if len(matched) > 0 {
		out.Status = StatusInvalid
	}
	return out, nil
}
