package snapshot

import (
	"context"
	"time"

	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// Repository defines the persistence contract for snapshots and changes.
// Implementations must guarantee that LoadCurrent never returns a partially
// written record: the snapshot insert and the current-pointer flip happen
// atomically, so readers observe either the old or the new snapshot.
type Repository interface {
	// SaveSnapshot persists snap as the counterparty's current snapshot,
	// demoting the previous current to history in the same transaction.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// LoadCurrent returns the counterparty's current snapshot, or nil when
	// no check has completed yet.
	LoadCurrent(ctx context.Context, counterpartyID common.ID) (*Snapshot, error)

	// History returns snapshots for a counterparty, newest first.
	History(ctx context.Context, counterpartyID common.ID, limit int) ([]*Snapshot, error)

	// SaveChanges appends change records.
	SaveChanges(ctx context.Context, changes []Change) error

	// RecentChanges returns changes detected for a tenant's counterparties
	// since the given instant, newest first.
	RecentChanges(ctx context.Context, tenantID common.ID, since time.Time, limit int) ([]Change, error)

	// MarkChangeNotified flips the notified flag, the only mutation a change
	// record ever receives.
	MarkChangeNotified(ctx context.Context, changeID common.ID) error
}
