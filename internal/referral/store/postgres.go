package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"referrals/internal/referral/models"
	id "referrals/pkg/domain"
	"referrals/pkg/platform/sentinel"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists referral codes, tracking rows and outbox events in PostgreSQL.
// This store is pure I/O; redemption rules belong in the service.
type PostgresStore struct {
	db queryer
}

// NewPostgres constructs a PostgreSQL-backed store running statements directly
// on db. Use PostgresTx for transactional work.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds a store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const codeColumns = `id, owner_id, code, points_per_referral, max_uses, current_uses, is_active, expires_at, archived_at, created_at, updated_at`

const trackingColumns = `id, referral_code_id, referrer_id, referred_user_id, status, points_per_referral, points_awarded, cancel_reason, created_at, completed_at, cancelled_at`

func (s *PostgresStore) CreateCode(ctx context.Context, code *models.ReferralCode) error {
	query := `
		INSERT INTO referral_codes (` + codeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(code.ID),
		uuid.UUID(code.OwnerID),
		code.Value,
		code.PointsPerReferral,
		nullInt(code.MaxUses),
		code.CurrentUses,
		code.IsActive,
		code.ExpiresAt,
		code.ArchivedAt,
		code.CreatedAt,
		code.UpdatedAt,
	)
	if err != nil {
		return classify("create referral code", err)
	}
	return nil
}

func (s *PostgresStore) FindCodeByID(ctx context.Context, codeID id.CodeID) (*models.ReferralCode, error) {
	query := `SELECT ` + codeColumns + ` FROM referral_codes WHERE id = $1`
	code, err := scanCode(s.db.QueryRowContext(ctx, query, uuid.UUID(codeID)))
	if err != nil {
		return nil, classify("find referral code by id", err)
	}
	return code, nil
}

func (s *PostgresStore) FindCodeByValue(ctx context.Context, value string) (*models.ReferralCode, error) {
	query := `SELECT ` + codeColumns + ` FROM referral_codes WHERE upper(code) = upper($1)`
	code, err := scanCode(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return nil, classify("find referral code by value", err)
	}
	return code, nil
}

// LockCode reads the code row with FOR UPDATE, serializing concurrent
// redemptions of the same code for the rest of the transaction.
func (s *PostgresStore) LockCode(ctx context.Context, codeID id.CodeID) (*models.ReferralCode, error) {
	query := `SELECT ` + codeColumns + ` FROM referral_codes WHERE id = $1 FOR UPDATE`
	code, err := scanCode(s.db.QueryRowContext(ctx, query, uuid.UUID(codeID)))
	if err != nil {
		return nil, classify("lock referral code", err)
	}
	return code, nil
}

func (s *PostgresStore) ListCodesByOwner(ctx context.Context, ownerID id.UserID, includeArchived bool) ([]*models.ReferralCode, error) {
	query := `
		SELECT ` + codeColumns + `
		FROM referral_codes
		WHERE owner_id = $1 AND ($2 OR archived_at IS NULL)
		ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(ownerID), includeArchived)
	if err != nil {
		return nil, classify("list referral codes", err)
	}
	defer rows.Close()

	codes := make([]*models.ReferralCode, 0)
	for rows.Next() {
		code, err := scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan referral code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate referral codes", err)
	}
	return codes, nil
}

// UpdateCode persists owner-mutable fields. current_uses is deliberately not
// written; it only moves through the conditional counter updates.
func (s *PostgresStore) UpdateCode(ctx context.Context, code *models.ReferralCode) error {
	query := `
		UPDATE referral_codes
		SET points_per_referral = $2,
			max_uses = $3,
			is_active = $4,
			expires_at = $5,
			archived_at = $6,
			updated_at = $7
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(code.ID),
		code.PointsPerReferral,
		nullInt(code.MaxUses),
		code.IsActive,
		code.ExpiresAt,
		code.ArchivedAt,
		code.UpdatedAt,
	)
	if err != nil {
		return classify("update referral code", err)
	}
	return expectRow(result, "update referral code", sentinel.ErrNotFound)
}

func (s *PostgresStore) DeleteCode(ctx context.Context, codeID id.CodeID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM referral_codes WHERE id = $1`, uuid.UUID(codeID))
	if err != nil {
		return classify("delete referral code", err)
	}
	return expectRow(result, "delete referral code", sentinel.ErrNotFound)
}

// IncrementUsesIfAvailable bumps current_uses only while it is below max_uses.
// Zero affected rows means the limit was reached.
func (s *PostgresStore) IncrementUsesIfAvailable(ctx context.Context, codeID id.CodeID) error {
	query := `
		UPDATE referral_codes
		SET current_uses = current_uses + 1
		WHERE id = $1
		  AND (max_uses IS NULL OR current_uses < max_uses)
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(codeID))
	if err != nil {
		return classify("increment referral code uses", err)
	}
	return expectRow(result, "increment referral code uses", sentinel.ErrExhausted)
}

func (s *PostgresStore) DecrementUses(ctx context.Context, codeID id.CodeID) error {
	query := `
		UPDATE referral_codes
		SET current_uses = GREATEST(current_uses - 1, 0)
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(codeID))
	if err != nil {
		return classify("decrement referral code uses", err)
	}
	return expectRow(result, "decrement referral code uses", sentinel.ErrNotFound)
}

func (s *PostgresStore) CreateTracking(ctx context.Context, t *models.ReferralTracking) error {
	query := `
		INSERT INTO referral_trackings (` + trackingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID),
		uuid.UUID(t.ReferralCodeID),
		uuid.UUID(t.ReferrerID),
		uuid.UUID(t.ReferredUserID),
		string(t.Status),
		t.PointsPerReferral,
		t.PointsAwarded,
		nullString(t.CancelReason),
		t.CreatedAt,
		t.CompletedAt,
		t.CancelledAt,
	)
	if err != nil {
		return classify("create referral tracking", err)
	}
	return nil
}

func (s *PostgresStore) FindTracking(ctx context.Context, trackingID id.TrackingID) (*models.ReferralTracking, error) {
	query := `SELECT ` + trackingColumns + ` FROM referral_trackings WHERE id = $1`
	t, err := scanTracking(s.db.QueryRowContext(ctx, query, uuid.UUID(trackingID)))
	if err != nil {
		return nil, classify("find referral tracking", err)
	}
	return t, nil
}

func (s *PostgresStore) FindTrackingByPair(ctx context.Context, codeID id.CodeID, referredUserID id.UserID) (*models.ReferralTracking, error) {
	query := `
		SELECT ` + trackingColumns + `
		FROM referral_trackings
		WHERE referral_code_id = $1 AND referred_user_id = $2
	`
	t, err := scanTracking(s.db.QueryRowContext(ctx, query, uuid.UUID(codeID), uuid.UUID(referredUserID)))
	if err != nil {
		return nil, classify("find referral tracking by pair", err)
	}
	return t, nil
}

func (s *PostgresStore) CountTrackingsByCode(ctx context.Context, codeID id.CodeID) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'pending')
		FROM referral_trackings
		WHERE referral_code_id = $1
	`
	var total, pending int
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(codeID)).Scan(&total, &pending); err != nil {
		return 0, 0, classify("count referral trackings", err)
	}
	return total, pending, nil
}

// CompleteIfPending is a status-guarded transition. When no row is updated it
// tells a missing row (ErrNotFound) from a terminal one (ErrInvalidState).
func (s *PostgresStore) CompleteIfPending(ctx context.Context, trackingID id.TrackingID, now time.Time) (*models.ReferralTracking, error) {
	query := `
		UPDATE referral_trackings
		SET status = 'completed',
			points_awarded = points_per_referral,
			completed_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + trackingColumns
	t, err := scanTracking(s.db.QueryRowContext(ctx, query, uuid.UUID(trackingID), now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missingOrTerminal(ctx, trackingID)
		}
		return nil, classify("complete referral tracking", err)
	}
	return t, nil
}

func (s *PostgresStore) CancelIfPending(ctx context.Context, trackingID id.TrackingID, reason string, now time.Time) (*models.ReferralTracking, error) {
	query := `
		UPDATE referral_trackings
		SET status = 'cancelled',
			points_awarded = 0,
			cancel_reason = $2,
			cancelled_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + trackingColumns
	t, err := scanTracking(s.db.QueryRowContext(ctx, query, uuid.UUID(trackingID), nullString(reason), now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missingOrTerminal(ctx, trackingID)
		}
		return nil, classify("cancel referral tracking", err)
	}
	return t, nil
}

func (s *PostgresStore) missingOrTerminal(ctx context.Context, trackingID id.TrackingID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM referral_trackings WHERE id = $1)`, uuid.UUID(trackingID),
	).Scan(&exists)
	if err != nil {
		return classify("check referral tracking", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) ListTrackings(ctx context.Context, filter models.TrackingFilter) ([]*models.ReferralTracking, error) {
	query := `
		SELECT ` + trackingColumns + `
		FROM referral_trackings
		WHERE ($1::uuid IS NULL OR referrer_id = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		ORDER BY created_at DESC, id
	`
	referrer, since := filterArgs(filter)
	rows, err := s.db.QueryContext(ctx, query, referrer, since)
	if err != nil {
		return nil, classify("list referral trackings", err)
	}
	defer rows.Close()

	out := make([]*models.ReferralTracking, 0)
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan referral tracking: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate referral trackings", err)
	}
	return out, nil
}

func (s *PostgresStore) AggregateByReferrer(ctx context.Context, filter models.TrackingFilter) ([]models.OwnerTotals, error) {
	query := `
		SELECT referrer_id,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(points_awarded) FILTER (WHERE status = 'completed'), 0)
		FROM referral_trackings
		WHERE ($1::uuid IS NULL OR referrer_id = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		GROUP BY referrer_id
		ORDER BY referrer_id
	`
	referrer, since := filterArgs(filter)
	rows, err := s.db.QueryContext(ctx, query, referrer, since)
	if err != nil {
		return nil, classify("aggregate referral trackings", err)
	}
	defer rows.Close()

	out := make([]models.OwnerTotals, 0)
	for rows.Next() {
		var (
			owner  uuid.UUID
			totals models.OwnerTotals
		)
		if err := rows.Scan(&owner, &totals.Total, &totals.Completed, &totals.Pending, &totals.Cancelled, &totals.PointsEarned); err != nil {
			return nil, fmt.Errorf("scan referral totals: %w", err)
		}
		totals.OwnerID = id.UserID(owner)
		out = append(out, totals)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate referral totals", err)
	}
	return out, nil
}

func (s *PostgresStore) AppendOutbox(ctx context.Context, event models.OutboxEvent) error {
	query := `
		INSERT INTO referral_outbox (id, event_type, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		string(event.Type),
		event.AggregateID,
		[]byte(event.Payload),
		event.OccurredAt,
	)
	if err != nil {
		return classify("insert outbox entry", err)
	}
	return nil
}

// FetchUnpublished returns up to limit unpublished outbox events, oldest first.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, occurred_at
		FROM referral_outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at, id
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classify("fetch outbox entries", err)
	}
	defer rows.Close()

	out := make([]models.OutboxEvent, 0, limit)
	for rows.Next() {
		var (
			eventID   uuid.UUID
			eventType string
			payload   []byte
			event     models.OutboxEvent
		)
		if err := rows.Scan(&eventID, &eventType, &event.AggregateID, &payload, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		event.ID = id.EventID(eventID)
		event.Payload = payload
		event.Type = models.EventType(eventType)
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate outbox entries", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, eventIDs []id.EventID, now time.Time) error {
	if len(eventIDs) == 0 {
		return nil
	}
	ids := make([]string, len(eventIDs))
	for i, eventID := range eventIDs {
		ids[i] = eventID.String()
	}
	query := `
		UPDATE referral_outbox
		SET published_at = $2
		WHERE id = ANY($1::uuid[]) AND published_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids), now); err != nil {
		return classify("mark outbox entries published", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*models.ReferralCode, error) {
	var (
		codeID, ownerID uuid.UUID
		maxUses         sql.NullInt64
		expiresAt       sql.NullTime
		archivedAt      sql.NullTime
		code            models.ReferralCode
	)
	err := row.Scan(
		&codeID,
		&ownerID,
		&code.Value,
		&code.PointsPerReferral,
		&maxUses,
		&code.CurrentUses,
		&code.IsActive,
		&expiresAt,
		&archivedAt,
		&code.CreatedAt,
		&code.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	code.ID = id.CodeID(codeID)
	code.OwnerID = id.UserID(ownerID)
	if maxUses.Valid {
		v := int(maxUses.Int64)
		code.MaxUses = &v
	}
	code.ExpiresAt = timePtr(expiresAt)
	code.ArchivedAt = timePtr(archivedAt)
	return &code, nil
}

func scanTracking(row rowScanner) (*models.ReferralTracking, error) {
	var (
		trackingID, codeID, referrerID, referredID uuid.UUID
		status                                     string
		cancelReason                               sql.NullString
		completedAt, cancelledAt                   sql.NullTime
		t                                          models.ReferralTracking
	)
	err := row.Scan(
		&trackingID,
		&codeID,
		&referrerID,
		&referredID,
		&status,
		&t.PointsPerReferral,
		&t.PointsAwarded,
		&cancelReason,
		&t.CreatedAt,
		&completedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	t.ID = id.TrackingID(trackingID)
	t.ReferralCodeID = id.CodeID(codeID)
	t.ReferrerID = id.UserID(referrerID)
	t.ReferredUserID = id.UserID(referredID)
	t.Status = models.TrackingStatus(status)
	t.CancelReason = cancelReason.String
	t.CompletedAt = timePtr(completedAt)
	t.CancelledAt = timePtr(cancelledAt)
	return &t, nil
}

func filterArgs(filter models.TrackingFilter) (referrer any, since any) {
	if filter.ReferrerID != nil {
		referrer = filter.ReferrerID.String()
	}
	if filter.Since != nil {
		since = *filter.Since
	}
	return referrer, since
}

func expectRow(result sql.Result, op string, none error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return none
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
