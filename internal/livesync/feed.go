package livesync

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
)

// Feed is the client-side view of one recipient's notifications: an ordered
// list merged from backfills and live pushes, deduplicated by notification
// id, with the unread counter always recomputed from row-state deltas. It is
// the reference merge logic for anything consuming the stream API, and it
// must never be treated as authoritative across a reconnect — Backfill
// re-grounds it in the store.
type Feed struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.Notification
}

func NewFeed() *Feed {
	return &Feed{byID: make(map[uuid.UUID]model.Notification)}
}

// Apply merges one pushed row. is_read is monotonic: a push can flip a
// cached row to read but never back to unread.
func (f *Feed) Apply(n model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merge(n)
}

// Backfill merges a full store listing, deduplicating against rows already
// pushed. Call it on every (re)connect before trusting incremental pushes.
func (f *Feed) Backfill(notifications []*model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range notifications {
		if n != nil {
			f.merge(*n)
		}
	}
}

// MarkRead applies an optimistic local read flip. Per policy the flip is
// kept even when the server call later fails; a stale unread flag heals on
// the next backfill and is less annoying than a notification popping back.
func (f *Feed) MarkRead(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.byID[id]; ok && !n.IsRead {
		n.IsRead = true
		f.byID[id] = n
	}
}

// MarkAllRead flips every cached row to read.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, n := range f.byID {
		if !n.IsRead {
			n.IsRead = true
			f.byID[id] = n
		}
	}
}

// Unread is derived from row state, never tracked as a separate counter
// that could drift.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.byID {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// Notifications returns the merged list, newest first.
func (f *Feed) Notifications() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Notification, 0, len(f.byID))
	for _, n := range f.byID {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out
}

// IDs returns the set of known notification ids, for convergence checks.
func (f *Feed) IDs() map[uuid.UUID]struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[uuid.UUID]struct{}, len(f.byID))
	for id := range f.byID {
		ids[id] = struct{}{}
	}
	return ids
}

func (f *Feed) merge(n model.Notification) {
	existing, ok := f.byID[n.ID]
	if !ok {
		f.byID[n.ID] = n
		return
	}
	// Keep the read flag monotonic regardless of arrival order.
	if existing.IsRead {
		n.IsRead = true
	}
	f.byID[n.ID] = n
}
