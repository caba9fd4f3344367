package monitoring

import (
	"context"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// AlertStatus is the alert lifecycle state.  Transitions are monotonic along
// open → acknowledged → resolved, with open|acknowledged → false_positive;
// resolved and false_positive are terminal.
type AlertStatus int

const (
	AlertStatusOpen AlertStatus = iota + 1
	AlertStatusAcknowledged
	AlertStatusResolved
	AlertStatusFalsePositive
)

// String returns the persisted spelling of the status.
func (s AlertStatus) String() string {
	switch s {
	case AlertStatusOpen:
		return "open"
	case AlertStatusAcknowledged:
		return "acknowledged"
	case AlertStatusResolved:
		return "resolved"
	case AlertStatusFalsePositive:
		return "false_positive"
	default:
		return "unknown"
	}
}

// ParseAlertStatus converts the persisted string form back to an AlertStatus.
func ParseAlertStatus(s string) AlertStatus {
	switch s {
	case "open":
		return AlertStatusOpen
	case "acknowledged":
		return AlertStatusAcknowledged
	case "resolved":
		return AlertStatusResolved
	case "false_positive":
		return AlertStatusFalsePositive
	default:
		return AlertStatusOpen
	}
}

// terminal reports whether no further transition is allowed.
func (s AlertStatus) terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusFalsePositive
}

// Alert is a trackable compliance event tied to one counterparty and one
// triggering condition.  It is mutated only through its own transition
// methods; everything else treats it as read-only.
type Alert struct {
	ID             common.ID `json:"id"`
	TenantID       common.ID `json:"tenant_id"`
	CounterpartyID common.ID `json:"counterparty_id"`

	// Condition is the triggering condition key (sanctions_match or
	// risk_threshold), part of the deduplication identity.
	Condition string `json:"condition"`

	// Severity is derived from the risk level at creation time.
	Severity counterparty.RiskLevel `json:"severity"`
	Status   AlertStatus            `json:"status"`
	Message  string                 `json:"message"`

	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// Acknowledge transitions open → acknowledged, recording the actor.
func (a *Alert) Acknowledge(actorID string, notes string, at time.Time) error {
	if a.Status != AlertStatusOpen {
		return errors.NewInvalidTransition("cannot acknowledge alert %s in status %s", a.ID, a.Status)
	}
	a.Status = AlertStatusAcknowledged
	a.AcknowledgedAt = &at
	a.AcknowledgedBy = actorID
	a.appendNotes(notes)
	return nil
}

// Resolve transitions open|acknowledged → resolved, recording the actor.
func (a *Alert) Resolve(actorID string, notes string, at time.Time) error {
	if a.Status.terminal() {
		return errors.NewInvalidTransition("cannot resolve alert %s in status %s", a.ID, a.Status)
	}
	a.Status = AlertStatusResolved
	a.ResolvedAt = &at
	a.ResolvedBy = actorID
	a.appendNotes(notes)
	return nil
}

// MarkFalsePositive transitions open|acknowledged → false_positive.  The
// resolved fields record who closed it and when, same as a resolution.
func (a *Alert) MarkFalsePositive(actorID string, notes string, at time.Time) error {
	if a.Status.terminal() {
		return errors.NewInvalidTransition("cannot mark alert %s false positive in status %s", a.ID, a.Status)
	}
	a.Status = AlertStatusFalsePositive
	a.ResolvedAt = &at
	a.ResolvedBy = actorID
	a.appendNotes(notes)
	return nil
}

func (a *Alert) appendNotes(notes string) {
	if notes == "" {
		return
	}
	if a.Notes != "" {
		a.Notes += "\n"
	}
	a.Notes += notes
}

// AlertRepository defines the persistence contract for alerts.
type AlertRepository interface {
	SaveAlert(ctx context.Context, alert *Alert) error
	FindAlertByID(ctx context.Context, id common.ID) (*Alert, error)

	// FindOpenAlert returns the open or acknowledged alert for the given
	// counterparty and condition, or nil when none exists.  Terminal alerts
	// never suppress a new occurrence.
	FindOpenAlert(ctx context.Context, counterpartyID common.ID, condition string) (*Alert, error)

	// ListAlertsByTenant returns one page of a tenant's alerts, newest first,
	// along with the total count.
	ListAlertsByTenant(ctx context.Context, tenantID common.ID, page, pageSize int) ([]*Alert, int, error)

	// CountAlertsByStatus returns per-status counts for a tenant.
	CountAlertsByStatus(ctx context.Context, tenantID common.ID) (map[AlertStatus]int, error)
}

// Notification event types, mapped to transport topics by the publisher.
const (
	EventAlertCreated      = "alert.created"
	EventAlertTransitioned = "alert.transitioned"
	EventChangeDetected    = "change.detected"
	EventCheckFailed       = "check.failed"
)

// NotificationEvent is the outbound event emitted on new alerts, alert
// transitions, detected changes, and failed cycles.  The engine guarantees
// emission only; delivery is the transport's concern.
type NotificationEvent struct {
	ID             common.ID      `json:"id"`
	Type           string         `json:"type"`
	TenantID       common.ID      `json:"tenant_id"`
	CounterpartyID common.ID      `json:"counterparty_id"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Payload        map[string]any `json:"payload,omitempty"`
}

// Publisher emits notification events to the outbound transport.
type Publisher interface {
	Publish(ctx context.Context, event NotificationEvent) error
}

// NopPublisher discards events.  Intended for tests and for running the
// engine without a transport.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, NotificationEvent) error { return nil }

// AlertManager owns alert creation, deduplication, and the lifecycle state
// machine, and emits notification events for every creation and transition.
type AlertManager struct {
	repo      AlertRepository
	publisher Publisher
	clock     common.Clock
	logger    logging.Logger
}

// NewAlertManager wires the alert manager.
func NewAlertManager(repo AlertRepository, publisher Publisher, clock common.Clock, logger logging.Logger) *AlertManager {
	return &AlertManager{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    logger.Named("alerts"),
	}
}

// Evaluate applies the creation policy after one completed check cycle and
// returns the alerts it created.  A sanctions match raises a sanctions_match
// alert; otherwise a score at the tenant's alert threshold raises a
// risk_threshold alert.  One cycle raises at most one new alert, and none
// when an open or acknowledged alert already exists for the same counterparty
// and condition.
func (m *AlertManager) Evaluate(ctx context.Context, cp *counterparty.Counterparty, policy *counterparty.MonitoringPolicy, findings FindingSet, score float64, level counterparty.RiskLevel) ([]*Alert, error) {
	var created []*Alert

	threshold := policy.AlertThreshold
	if threshold <= 0 {
		threshold = DefaultThresholds().High
	}

	if findings.SanctionsMatch && (policy.AlwaysAlertOnSanctions || score >= threshold) {
		alert, err := m.createIfAbsent(ctx, cp, ConditionSanctionsMatch, level,
			"counterparty name matched sanctions screening lists", findings.MatchedLists)
		if err != nil {
			return created, err
		}
		if alert != nil {
			created = append(created, alert)
		}
		// The sanctions condition subsumes the threshold one: the score
		// crossing is driven by the match itself, so no second alert.
		return created, nil
	}

	if score >= threshold {
		alert, err := m.createIfAbsent(ctx, cp, ConditionRiskThreshold, level,
			"risk score crossed the alerting threshold", nil)
		if err != nil {
			return created, err
		}
		if alert != nil {
			created = append(created, alert)
		}
	}

	return created, nil
}

// createIfAbsent creates an open alert unless an open/acknowledged alert
// already exists for the counterparty+condition pair.
func (m *AlertManager) createIfAbsent(ctx context.Context, cp *counterparty.Counterparty, condition string, severity counterparty.RiskLevel, message string, matchedLists []string) (*Alert, error) {
	existing, err := m.repo.FindOpenAlert(ctx, cp.ID, condition)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check for existing alert")
	}
	if existing != nil {
		m.logger.Debug("alert suppressed by open duplicate",
			logging.String("counterparty_id", cp.ID.String()),
			logging.String("condition", condition),
			logging.String("existing_alert_id", existing.ID.String()))
		return nil, nil
	}

	alert := &Alert{
		ID:             common.NewID("ALT"),
		TenantID:       cp.TenantID,
		CounterpartyID: cp.ID,
		Condition:      condition,
		Severity:       severity,
		Status:         AlertStatusOpen,
		Message:        message,
		CreatedAt:      m.clock.Now(),
	}
	if err := m.repo.SaveAlert(ctx, alert); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save alert")
	}

	m.logger.Info("alert created",
		logging.String("alert_id", alert.ID.String()),
		logging.String("counterparty_id", cp.ID.String()),
		logging.String("condition", condition),
		logging.String("severity", severity.String()))

	payload := map[string]any{
		"condition": condition,
		"severity":  severity.String(),
		"message":   message,
	}
	if len(matchedLists) > 0 {
		payload["matched_lists"] = matchedLists
	}
	m.publish(ctx, NotificationEvent{
		ID:             common.NewID("EVT"),
		Type:           EventAlertCreated,
		TenantID:       cp.TenantID,
		CounterpartyID: cp.ID,
		OccurredAt:     alert.CreatedAt,
		Payload:        payload,
	})
	return alert, nil
}

// Acknowledge transitions an alert to acknowledged.
func (m *AlertManager) Acknowledge(ctx context.Context, alertID common.ID, actorID, notes string) (*Alert, error) {
	return m.transition(ctx, alertID, func(a *Alert, at time.Time) error {
		return a.Acknowledge(actorID, notes, at)
	})
}

// Resolve transitions an alert to resolved.
func (m *AlertManager) Resolve(ctx context.Context, alertID common.ID, actorID, notes string) (*Alert, error) {
	return m.transition(ctx, alertID, func(a *Alert, at time.Time) error {
		return a.Resolve(actorID, notes, at)
	})
}

// MarkFalsePositive transitions an alert to false_positive.
func (m *AlertManager) MarkFalsePositive(ctx context.Context, alertID common.ID, actorID, notes string) (*Alert, error) {
	return m.transition(ctx, alertID, func(a *Alert, at time.Time) error {
		return a.MarkFalsePositive(actorID, notes, at)
	})
}

func (m *AlertManager) transition(ctx context.Context, alertID common.ID, apply func(*Alert, time.Time) error) (*Alert, error) {
	alert, err := m.repo.FindAlertByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, errors.NewNotFound("alert %s not found", alertID)
	}

	if err := apply(alert, m.clock.Now()); err != nil {
		return nil, err
	}
	if err := m.repo.SaveAlert(ctx, alert); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save alert transition")
	}

	m.logger.Info("alert transitioned",
		logging.String("alert_id", alert.ID.String()),
		logging.String("status", alert.Status.String()))

	m.publish(ctx, NotificationEvent{
		ID:             common.NewID("EVT"),
		Type:           EventAlertTransitioned,
		TenantID:       alert.TenantID,
		CounterpartyID: alert.CounterpartyID,
		OccurredAt:     m.clock.Now(),
		Payload: map[string]any{
			"alert_id":  alert.ID.String(),
			"condition": alert.Condition,
			"status":    alert.Status.String(),
		},
	})
	return alert, nil
}

// ListAlerts returns one page of a tenant's alerts, newest first.
func (m *AlertManager) ListAlerts(ctx context.Context, tenantID common.ID, page, pageSize int) ([]*Alert, *common.PaginationResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	alerts, total, err := m.repo.ListAlertsByTenant(ctx, tenantID, page, pageSize)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list alerts")
	}
	return alerts, common.NewPagination(page, pageSize, total), nil
}

// publish emits an event, logging on failure.  Emission failure never fails
// the surrounding operation; the alert write is the source of truth.
func (m *AlertManager) publish(ctx context.Context, event NotificationEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to publish notification event",
			logging.String("event_type", event.Type),
			logging.Err(err))
	}
}
