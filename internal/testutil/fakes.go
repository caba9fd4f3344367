// Package testutil provides in-memory fakes for the engine's persistence and
// transport contracts.  They are mutex-guarded and safe for concurrent use,
// matching the guarantees the real implementations give.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/domain/snapshot"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/verification"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// MemCounterpartyRepo is an in-memory counterparty.Repository.
type MemCounterpartyRepo struct {
	mu    sync.Mutex
	items map[common.ID]*counterparty.Counterparty
}

func NewMemCounterpartyRepo() *MemCounterpartyRepo {
	return &MemCounterpartyRepo{items: make(map[common.ID]*counterparty.Counterparty)}
}

func (r *MemCounterpartyRepo) Save(_ context.Context, cp *counterparty.Counterparty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *cp
	r.items[cp.ID] = &clone
	return nil
}

func (r *MemCounterpartyRepo) FindByID(_ context.Context, id common.ID) (*counterparty.Counterparty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	clone := *cp
	return &clone, nil
}

func (r *MemCounterpartyRepo) ListByTenant(_ context.Context, tenantID common.ID) ([]*counterparty.Counterparty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*counterparty.Counterparty
	for _, cp := range r.items {
		if cp.TenantID == tenantID {
			clone := *cp
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemCounterpartyRepo) FindDue(_ context.Context, now time.Time, tenantDefault counterparty.CheckFrequency, failedRetryAfter time.Duration) ([]*counterparty.Counterparty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*counterparty.Counterparty
	for _, cp := range r.items {
		if cp.Retired {
			continue
		}
		if !cp.DueAt(tenantDefault, failedRetryAfter).After(now) {
			clone := *cp
			due = append(due, &clone)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (r *MemCounterpartyRepo) UpdateRisk(_ context.Context, id common.ID, score float64, level counterparty.RiskLevel, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.items[id]
	if !ok {
		return nil
	}
	cp.RiskScore = score
	cp.RiskLevel = level
	cp.LastCheckedAt = &checkedAt
	cp.LastSuccessfulCheckAt = &checkedAt
	cp.LastCycleFailed = false
	cp.UpdatedAt = checkedAt
	return nil
}

func (r *MemCounterpartyRepo) MarkCycleFailed(_ context.Context, id common.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.items[id]
	if !ok {
		return nil
	}
	cp.LastCheckedAt = &at
	cp.LastCycleFailed = true
	cp.UpdatedAt = at
	return nil
}

func (r *MemCounterpartyRepo) Retire(_ context.Context, id common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cp, ok := r.items[id]; ok {
		cp.Retired = true
	}
	return nil
}

// StaticPolicyProvider returns the same policy for every tenant.
type StaticPolicyProvider struct {
	Policy *counterparty.MonitoringPolicy
}

func (p *StaticPolicyProvider) PolicyFor(_ context.Context, tenantID common.ID) (*counterparty.MonitoringPolicy, error) {
	if p.Policy != nil {
		return p.Policy, nil
	}
	return &counterparty.MonitoringPolicy{
		TenantID:               tenantID,
		Frequency:              counterparty.FrequencyDaily,
		AlertThreshold:         70,
		AlwaysAlertOnSanctions: true,
	}, nil
}

// MemSnapshotRepo is an in-memory snapshot.Repository.
type MemSnapshotRepo struct {
	mu       sync.Mutex
	current  map[common.ID]*snapshot.Snapshot
	history  map[common.ID][]*snapshot.Snapshot
	changes  []snapshot.Change
	tenantOf func(counterpartyID common.ID) common.ID
}

// NewMemSnapshotRepo builds the repo.  tenantOf resolves a counterparty's
// tenant for RecentChanges filtering; nil means "match everything".
func NewMemSnapshotRepo(tenantOf func(common.ID) common.ID) *MemSnapshotRepo {
	return &MemSnapshotRepo{
		current:  make(map[common.ID]*snapshot.Snapshot),
		history:  make(map[common.ID][]*snapshot.Snapshot),
		tenantOf: tenantOf,
	}
}

func (r *MemSnapshotRepo) SaveSnapshot(_ context.Context, snap *snapshot.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *snap
	if prev, ok := r.current[snap.CounterpartyID]; ok {
		r.history[snap.CounterpartyID] = append([]*snapshot.Snapshot{prev}, r.history[snap.CounterpartyID]...)
	}
	r.current[snap.CounterpartyID] = &clone
	return nil
}

func (r *MemSnapshotRepo) LoadCurrent(_ context.Context, counterpartyID common.ID) (*snapshot.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.current[counterpartyID]
	if !ok {
		return nil, nil
	}
	clone := *snap
	return &clone, nil
}

func (r *MemSnapshotRepo) History(_ context.Context, counterpartyID common.ID, limit int) ([]*snapshot.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*snapshot.Snapshot
	if cur, ok := r.current[counterpartyID]; ok {
		clone := *cur
		out = append(out, &clone)
	}
	for _, snap := range r.history[counterpartyID] {
		clone := *snap
		out = append(out, &clone)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemSnapshotRepo) SaveChanges(_ context.Context, changes []snapshot.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, changes...)
	return nil
}

func (r *MemSnapshotRepo) RecentChanges(_ context.Context, tenantID common.ID, since time.Time, limit int) ([]snapshot.Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []snapshot.Change
	for _, ch := range r.changes {
		if ch.DetectedAt.Before(since) {
			continue
		}
		if r.tenantOf != nil && r.tenantOf(ch.CounterpartyID) != tenantID {
			continue
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemSnapshotRepo) MarkChangeNotified(_ context.Context, changeID common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.changes {
		if r.changes[i].ID == changeID {
			r.changes[i].Notified = true
		}
	}
	return nil
}

// AllChanges returns every stored change, for assertions.
func (r *MemSnapshotRepo) AllChanges() []snapshot.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]snapshot.Change, len(r.changes))
	copy(out, r.changes)
	return out
}

// MemAlertRepo is an in-memory monitoring.AlertRepository.
type MemAlertRepo struct {
	mu     sync.Mutex
	alerts map[common.ID]*monitoring.Alert
}

func NewMemAlertRepo() *MemAlertRepo {
	return &MemAlertRepo{alerts: make(map[common.ID]*monitoring.Alert)}
}

func (r *MemAlertRepo) SaveAlert(_ context.Context, alert *monitoring.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *alert
	r.alerts[alert.ID] = &clone
	return nil
}

func (r *MemAlertRepo) FindAlertByID(_ context.Context, id common.ID) (*monitoring.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok {
		return nil, nil
	}
	clone := *alert
	return &clone, nil
}

func (r *MemAlertRepo) FindOpenAlert(_ context.Context, counterpartyID common.ID, condition string) (*monitoring.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, alert := range r.alerts {
		if alert.CounterpartyID != counterpartyID || alert.Condition != condition {
			continue
		}
		if alert.Status == monitoring.AlertStatusOpen || alert.Status == monitoring.AlertStatusAcknowledged {
			clone := *alert
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemAlertRepo) ListAlertsByTenant(_ context.Context, tenantID common.ID, page, pageSize int) ([]*monitoring.Alert, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*monitoring.Alert
	for _, alert := range r.alerts {
		if alert.TenantID == tenantID {
			clone := *alert
			all = append(all, &clone)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemAlertRepo) CountAlertsByStatus(_ context.Context, tenantID common.ID) (map[monitoring.AlertStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[monitoring.AlertStatus]int)
	for _, alert := range r.alerts {
		if alert.TenantID == tenantID {
			counts[alert.Status]++
		}
	}
	return counts, nil
}

// AllAlerts returns every stored alert, for assertions.
func (r *MemAlertRepo) AllAlerts() []*monitoring.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*monitoring.Alert
	for _, alert := range r.alerts {
		clone := *alert
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// MemLocker is an in-memory monitoring.CycleLocker keyed per counterparty.
type MemLocker struct {
	mu   sync.Mutex
	held map[common.ID]bool
}

func NewMemLocker() *MemLocker {
	return &MemLocker{held: make(map[common.ID]bool)}
}

func (l *MemLocker) Acquire(_ context.Context, id common.ID) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] {
		return nil, false, nil
	}
	l.held[id] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, id)
	}, true, nil
}

// CapturePublisher records every published event.
type CapturePublisher struct {
	mu     sync.Mutex
	events []monitoring.NotificationEvent
}

func (p *CapturePublisher) Publish(_ context.Context, event monitoring.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the captured events in publication order.
func (p *CapturePublisher) Events() []monitoring.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]monitoring.NotificationEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsOfType filters captured events by type.
func (p *CapturePublisher) EventsOfType(eventType string) []monitoring.NotificationEvent {
	var out []monitoring.NotificationEvent
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// StubAdapter returns a scripted sequence of outcomes for one source.  After
// the script is exhausted it keeps returning the final entry.
type StubAdapter struct {
	Src counterparty.Source

	mu      sync.Mutex
	script  []verification.Outcome
	errs    []error
	callNum int
}

// NewStubAdapter builds a stub for src with the given outcome script.
func NewStubAdapter(src counterparty.Source, script ...verification.Outcome) *StubAdapter {
	return &StubAdapter{Src: src, script: script}
}

// WithErrors pairs per-call errors with the outcome script.
func (a *StubAdapter) WithErrors(errs ...error) *StubAdapter {
	a.errs = errs
	return a
}

func (a *StubAdapter) Source() counterparty.Source { return a.Src }

func (a *StubAdapter) Verify(context.Context, verification.Identifier) (verification.Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.callNum
	a.callNum++
	if i >= len(a.script) {
		i = len(a.script) - 1
	}
	var err error
	if i < len(a.errs) {
		err = a.errs[i]
	}
	return a.script[i], err
}

// Calls returns how many times Verify ran.
func (a *StubAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.callNum
}
