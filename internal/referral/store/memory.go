package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"referrals/internal/referral/models"
	"referrals/internal/referral/service"
	id "referrals/pkg/domain"
	"referrals/pkg/platform/sentinel"
)

type pairKey struct {
	codeID id.CodeID
	userID id.UserID
}

// memState is the full data set. It is never shared between a transaction
// and readers: RunInTx mutates a clone and swaps it in on success.
type memState struct {
	codes     map[id.CodeID]*models.ReferralCode
	byValue   map[string]id.CodeID
	trackings map[id.TrackingID]*models.ReferralTracking
	byPair    map[pairKey]id.TrackingID
	outbox    []models.OutboxEvent
}

func newMemState() *memState {
	return &memState{
		codes:     make(map[id.CodeID]*models.ReferralCode),
		byValue:   make(map[string]id.CodeID),
		trackings: make(map[id.TrackingID]*models.ReferralTracking),
		byPair:    make(map[pairKey]id.TrackingID),
	}
}

func (m *memState) clone() *memState {
	c := &memState{
		codes:     make(map[id.CodeID]*models.ReferralCode, len(m.codes)),
		byValue:   make(map[string]id.CodeID, len(m.byValue)),
		trackings: make(map[id.TrackingID]*models.ReferralTracking, len(m.trackings)),
		byPair:    make(map[pairKey]id.TrackingID, len(m.byPair)),
		outbox:    append([]models.OutboxEvent(nil), m.outbox...),
	}
	for k, v := range m.codes {
		c.codes[k] = copyCode(v)
	}
	for k, v := range m.byValue {
		c.byValue[k] = v
	}
	for k, v := range m.trackings {
		c.trackings[k] = copyTracking(v)
	}
	for k, v := range m.byPair {
		c.byPair[k] = v
	}
	return c
}

// InMemoryStore implements service.Store and service.StoreTx for tests and
// single-process deployments. A single lock serializes writers; readers see
// either the state before or after a whole transaction.
type InMemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{state: newMemState()}
}

// RunInTx applies fn to a private copy and publishes it only when fn succeeds.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

// ReadSnapshot runs fn against a private copy taken under the read lock.
// Writes made by fn are discarded.
func (s *InMemoryStore) ReadSnapshot(ctx context.Context, fn func(store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(&memTx{state: snapshot})
}

func (s *InMemoryStore) read(fn func(tx *memTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{state: s.state})
}

func (s *InMemoryStore) write(ctx context.Context, fn func(tx service.Store) error) error {
	return s.RunInTx(ctx, fn)
}

func (s *InMemoryStore) CreateCode(ctx context.Context, code *models.ReferralCode) error {
	return s.write(ctx, func(tx service.Store) error { return tx.CreateCode(ctx, code) })
}

func (s *InMemoryStore) FindCodeByID(ctx context.Context, codeID id.CodeID) (code *models.ReferralCode, err error) {
	err = s.read(func(tx *memTx) error {
		code, err = tx.FindCodeByID(ctx, codeID)
		return err
	})
	return code, err
}

func (s *InMemoryStore) FindCodeByValue(ctx context.Context, value string) (code *models.ReferralCode, err error) {
	err = s.read(func(tx *memTx) error {
		code, err = tx.FindCodeByValue(ctx, value)
		return err
	})
	return code, err
}

// LockCode outside a transaction is a plain read.
func (s *InMemoryStore) LockCode(ctx context.Context, codeID id.CodeID) (*models.ReferralCode, error) {
	return s.FindCodeByID(ctx, codeID)
}

func (s *InMemoryStore) ListCodesByOwner(ctx context.Context, ownerID id.UserID, includeArchived bool) (codes []*models.ReferralCode, err error) {
	err = s.read(func(tx *memTx) error {
		codes, err = tx.ListCodesByOwner(ctx, ownerID, includeArchived)
		return err
	})
	return codes, err
}

func (s *InMemoryStore) UpdateCode(ctx context.Context, code *models.ReferralCode) error {
	return s.write(ctx, func(tx service.Store) error { return tx.UpdateCode(ctx, code) })
}

func (s *InMemoryStore) DeleteCode(ctx context.Context, codeID id.CodeID) error {
	return s.write(ctx, func(tx service.Store) error { return tx.DeleteCode(ctx, codeID) })
}

func (s *InMemoryStore) IncrementUsesIfAvailable(ctx context.Context, codeID id.CodeID) error {
	return s.write(ctx, func(tx service.Store) error { return tx.IncrementUsesIfAvailable(ctx, codeID) })
}

func (s *InMemoryStore) DecrementUses(ctx context.Context, codeID id.CodeID) error {
	return s.write(ctx, func(tx service.Store) error { return tx.DecrementUses(ctx, codeID) })
}

func (s *InMemoryStore) CreateTracking(ctx context.Context, tracking *models.ReferralTracking) error {
	return s.write(ctx, func(tx service.Store) error { return tx.CreateTracking(ctx, tracking) })
}

func (s *InMemoryStore) FindTracking(ctx context.Context, trackingID id.TrackingID) (t *models.ReferralTracking, err error) {
	err = s.read(func(tx *memTx) error {
		t, err = tx.FindTracking(ctx, trackingID)
		return err
	})
	return t, err
}

func (s *InMemoryStore) FindTrackingByPair(ctx context.Context, codeID id.CodeID, referredUserID id.UserID) (t *models.ReferralTracking, err error) {
	err = s.read(func(tx *memTx) error {
		t, err = tx.FindTrackingByPair(ctx, codeID, referredUserID)
		return err
	})
	return t, err
}

func (s *InMemoryStore) CountTrackingsByCode(ctx context.Context, codeID id.CodeID) (total int, pending int, err error) {
	err = s.read(func(tx *memTx) error {
		total, pending, err = tx.CountTrackingsByCode(ctx, codeID)
		return err
	})
	return total, pending, err
}

func (s *InMemoryStore) CompleteIfPending(ctx context.Context, trackingID id.TrackingID, now time.Time) (t *models.ReferralTracking, err error) {
	err = s.write(ctx, func(tx service.Store) error {
		t, err = tx.CompleteIfPending(ctx, trackingID, now)
		return err
	})
	return t, err
}

func (s *InMemoryStore) CancelIfPending(ctx context.Context, trackingID id.TrackingID, reason string, now time.Time) (t *models.ReferralTracking, err error) {
	err = s.write(ctx, func(tx service.Store) error {
		t, err = tx.CancelIfPending(ctx, trackingID, reason, now)
		return err
	})
	return t, err
}

func (s *InMemoryStore) ListTrackings(ctx context.Context, filter models.TrackingFilter) (rows []*models.ReferralTracking, err error) {
	err = s.read(func(tx *memTx) error {
		rows, err = tx.ListTrackings(ctx, filter)
		return err
	})
	return rows, err
}

func (s *InMemoryStore) AggregateByReferrer(ctx context.Context, filter models.TrackingFilter) (totals []models.OwnerTotals, err error) {
	err = s.read(func(tx *memTx) error {
		totals, err = tx.AggregateByReferrer(ctx, filter)
		return err
	})
	return totals, err
}

func (s *InMemoryStore) AppendOutbox(ctx context.Context, event models.OutboxEvent) error {
	return s.write(ctx, func(tx service.Store) error { return tx.AppendOutbox(ctx, event) })
}

// FetchUnpublished returns up to limit outbox events in occurrence order.
func (s *InMemoryStore) FetchUnpublished(_ context.Context, limit int) ([]models.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OutboxEvent
	for _, e := range s.state.outbox {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkPublished drops delivered events. Nothing reads them afterwards, and
// every transaction copies the remaining outbox.
func (s *InMemoryStore) MarkPublished(_ context.Context, eventIDs []id.EventID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := make(map[id.EventID]struct{}, len(eventIDs))
	for _, eventID := range eventIDs {
		marked[eventID] = struct{}{}
	}
	kept := s.state.outbox[:0]
	for _, e := range s.state.outbox {
		if _, ok := marked[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	clear(s.state.outbox[len(kept):])
	s.state.outbox = kept
	return nil
}

// memTx is the unlocked view used inside transactions and snapshots.
type memTx struct {
	state *memState
}

func (t *memTx) CreateCode(_ context.Context, code *models.ReferralCode) error {
	if _, exists := t.state.byValue[code.Value]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := t.state.codes[code.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	t.state.codes[code.ID] = copyCode(code)
	t.state.byValue[code.Value] = code.ID
	return nil
}

func (t *memTx) FindCodeByID(_ context.Context, codeID id.CodeID) (*models.ReferralCode, error) {
	code, ok := t.state.codes[codeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCode(code), nil
}

func (t *memTx) FindCodeByValue(ctx context.Context, value string) (*models.ReferralCode, error) {
	codeID, ok := t.state.byValue[models.NormalizeCode(value)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.FindCodeByID(ctx, codeID)
}

// LockCode needs no extra locking: the whole transaction holds the writer lock.
func (t *memTx) LockCode(ctx context.Context, codeID id.CodeID) (*models.ReferralCode, error) {
	return t.FindCodeByID(ctx, codeID)
}

func (t *memTx) ListCodesByOwner(_ context.Context, ownerID id.UserID, includeArchived bool) ([]*models.ReferralCode, error) {
	out := make([]*models.ReferralCode, 0)
	for _, code := range t.state.codes {
		if code.OwnerID != ownerID {
			continue
		}
		if code.IsArchived() && !includeArchived {
			continue
		}
		out = append(out, copyCode(code))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// UpdateCode persists owner-mutable fields. The usage counter is left alone;
// it only moves through IncrementUsesIfAvailable and DecrementUses.
func (t *memTx) UpdateCode(_ context.Context, code *models.ReferralCode) error {
	existing, ok := t.state.codes[code.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := copyCode(code)
	updated.Value = existing.Value
	updated.OwnerID = existing.OwnerID
	updated.CurrentUses = existing.CurrentUses
	updated.CreatedAt = existing.CreatedAt
	t.state.codes[code.ID] = updated
	return nil
}

func (t *memTx) DeleteCode(_ context.Context, codeID id.CodeID) error {
	code, ok := t.state.codes[codeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, tracking := range t.state.trackings {
		if tracking.ReferralCodeID == codeID {
			return sentinel.ErrInvalidState
		}
	}
	delete(t.state.byValue, code.Value)
	delete(t.state.codes, codeID)
	return nil
}

func (t *memTx) IncrementUsesIfAvailable(_ context.Context, codeID id.CodeID) error {
	code, ok := t.state.codes[codeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if code.MaxUses != nil && code.CurrentUses >= *code.MaxUses {
		return sentinel.ErrExhausted
	}
	code.CurrentUses++
	return nil
}

func (t *memTx) DecrementUses(_ context.Context, codeID id.CodeID) error {
	code, ok := t.state.codes[codeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if code.CurrentUses > 0 {
		code.CurrentUses--
	}
	return nil
}

func (t *memTx) CreateTracking(_ context.Context, tracking *models.ReferralTracking) error {
	key := pairKey{codeID: tracking.ReferralCodeID, userID: tracking.ReferredUserID}
	if _, exists := t.state.byPair[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := t.state.codes[tracking.ReferralCodeID]; !exists {
		return sentinel.ErrNotFound
	}
	t.state.trackings[tracking.ID] = copyTracking(tracking)
	t.state.byPair[key] = tracking.ID
	return nil
}

func (t *memTx) FindTracking(_ context.Context, trackingID id.TrackingID) (*models.ReferralTracking, error) {
	tracking, ok := t.state.trackings[trackingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyTracking(tracking), nil
}

func (t *memTx) FindTrackingByPair(ctx context.Context, codeID id.CodeID, referredUserID id.UserID) (*models.ReferralTracking, error) {
	trackingID, ok := t.state.byPair[pairKey{codeID: codeID, userID: referredUserID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.FindTracking(ctx, trackingID)
}

func (t *memTx) CountTrackingsByCode(_ context.Context, codeID id.CodeID) (int, int, error) {
	var total, pending int
	for _, tracking := range t.state.trackings {
		if tracking.ReferralCodeID != codeID {
			continue
		}
		total++
		if tracking.IsPending() {
			pending++
		}
	}
	return total, pending, nil
}

func (t *memTx) CompleteIfPending(_ context.Context, trackingID id.TrackingID, now time.Time) (*models.ReferralTracking, error) {
	tracking, ok := t.state.trackings[trackingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !tracking.IsPending() {
		return nil, sentinel.ErrInvalidState
	}
	tracking.ApplyCompletion(now)
	return copyTracking(tracking), nil
}

func (t *memTx) CancelIfPending(_ context.Context, trackingID id.TrackingID, reason string, now time.Time) (*models.ReferralTracking, error) {
	tracking, ok := t.state.trackings[trackingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !tracking.IsPending() {
		return nil, sentinel.ErrInvalidState
	}
	tracking.ApplyCancellation(reason, now)
	return copyTracking(tracking), nil
}

func (t *memTx) ListTrackings(_ context.Context, filter models.TrackingFilter) ([]*models.ReferralTracking, error) {
	out := make([]*models.ReferralTracking, 0)
	for _, tracking := range t.state.trackings {
		if matchesFilter(tracking, filter) {
			out = append(out, copyTracking(tracking))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (t *memTx) AggregateByReferrer(_ context.Context, filter models.TrackingFilter) ([]models.OwnerTotals, error) {
	byOwner := make(map[id.UserID]*models.OwnerTotals)
	for _, tracking := range t.state.trackings {
		if !matchesFilter(tracking, filter) {
			continue
		}
		totals, ok := byOwner[tracking.ReferrerID]
		if !ok {
			totals = &models.OwnerTotals{OwnerID: tracking.ReferrerID}
			byOwner[tracking.ReferrerID] = totals
		}
		totals.Total++
		switch tracking.Status {
		case models.TrackingStatusCompleted:
			totals.Completed++
			totals.PointsEarned += tracking.PointsAwarded
		case models.TrackingStatusPending:
			totals.Pending++
		case models.TrackingStatusCancelled:
			totals.Cancelled++
		}
	}
	out := make([]models.OwnerTotals, 0, len(byOwner))
	for _, totals := range byOwner {
		out = append(out, *totals)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OwnerID.String() < out[j].OwnerID.String()
	})
	return out, nil
}

func (t *memTx) AppendOutbox(_ context.Context, event models.OutboxEvent) error {
	t.state.outbox = append(t.state.outbox, event)
	return nil
}

func matchesFilter(tracking *models.ReferralTracking, filter models.TrackingFilter) bool {
	if filter.ReferrerID != nil && tracking.ReferrerID != *filter.ReferrerID {
		return false
	}
	if filter.Since != nil && tracking.CreatedAt.Before(*filter.Since) {
		return false
	}
	return true
}

func copyCode(code *models.ReferralCode) *models.ReferralCode {
	c := *code
	if code.MaxUses != nil {
		v := *code.MaxUses
		c.MaxUses = &v
	}
	if code.ExpiresAt != nil {
		v := *code.ExpiresAt
		c.ExpiresAt = &v
	}
	if code.ArchivedAt != nil {
		v := *code.ArchivedAt
		c.ArchivedAt = &v
	}
	return &c
}

func copyTracking(tracking *models.ReferralTracking) *models.ReferralTracking {
	t := *tracking
	if tracking.CompletedAt != nil {
		v := *tracking.CompletedAt
		t.CompletedAt = &v
	}
	if tracking.CancelledAt != nil {
		v := *tracking.CancelledAt
		t.CancelledAt = &v
	}
	return &t
}
