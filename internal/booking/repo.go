package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed booking store.
type Repo struct{ DB *pgxpool.Pool }

const selectColumns = `id, user_email, currency, payment_method, property_title,
	deposit_amount, total_amount, months, txid, check_in_date, status,
	risk_score, risk_level, risk_reason, needs_review, version, created_at, released_at`

func (r *Repo) Insert(ctx context.Context, b Booking) (Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Status == "" {
		b.Status = StatusPendingAnalysis
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO bookings(id, user_email, currency, payment_method, property_title,
			deposit_amount, total_amount, months, txid, check_in_date, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		b.ID, b.UserEmail, b.Currency, b.PaymentMethod, b.PropertyTitle,
		b.DepositAmount, b.TotalAmount, b.Months, nullString(b.TxID), nullTime(b.CheckInDate),
		string(b.Status), b.CreatedAt,
	)
	if err != nil {
		return Booking{}, err
	}
	return b, nil
}

func (r *Repo) List(ctx context.Context) ([]Booking, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+selectColumns+` FROM bookings ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (Booking, error) {
	b, err := scanBooking(r.DB.QueryRow(ctx, `SELECT `+selectColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	return b, err
}

// UpdateFields applies p only if the row is still at expectedVersion.
// Scoring patches additionally require risk_score IS NULL and status
// patches require a legal predecessor status, so the precondition holds in
// SQL even if a caller skips the version check upstream.
func (r *Repo) UpdateFields(ctx context.Context, id string, expectedVersion int64, p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	q, args, err := updateStatement(id, expectedVersion, p)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// 0 rows: bedakan not found vs precondition gagal
	cur, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	if err := p.CheckAgainst(cur); err != nil {
		return err
	}
	return ErrVersionConflict
}

// updateStatement builds the conditional UPDATE for p. $1 is the id and $2
// the expected version; patch values follow in column order.
func updateStatement(id string, expectedVersion int64, p Patch) (string, []any, error) {
	sets := make([]string, 0, 8)
	args := []any{id, expectedVersion}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if p.RiskScore != nil {
		add("risk_score", *p.RiskScore)
	}
	if p.RiskLevel != nil {
		add("risk_level", string(*p.RiskLevel))
	}
	if p.RiskReason != nil {
		add("risk_reason", *p.RiskReason)
	}
	if p.NeedsReview != nil {
		add("needs_review", *p.NeedsReview)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.ReleasedAt != nil {
		add("released_at", *p.ReleasedAt)
	}
	sets = append(sets, "version = version + 1")

	where := []string{"id=$1", "version=$2"}
	if p.RiskScore != nil {
		where = append(where, "risk_score IS NULL")
	}
	if p.Status != nil {
		from := predecessors(*p.Status)
		if len(from) == 0 {
			return "", nil, fmt.Errorf("%w: nothing transitions to %s", ErrInvalidTransition, *p.Status)
		}
		args = append(args, from)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	return `UPDATE bookings SET ` + strings.Join(sets, ", ") + ` WHERE ` + strings.Join(where, " AND "), args, nil
}

func predecessors(to Status) []string {
	var out []string
	for from, next := range validNext {
		if next[to] {
			out = append(out, string(from))
		}
	}
	sort.Strings(out)
	return out
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		b       Booking
		txid    *string
		checkIn *time.Time
		status  string
		level   *string
		reason  *string
	)
	err := row.Scan(&b.ID, &b.UserEmail, &b.Currency, &b.PaymentMethod, &b.PropertyTitle,
		&b.DepositAmount, &b.TotalAmount, &b.Months, &txid, &checkIn, &status,
		&b.RiskScore, &level, &reason, &b.NeedsReview, &b.Version, &b.CreatedAt, &b.ReleasedAt)
	if err != nil {
		return Booking{}, err
	}
	b.Status = Status(status)
	if txid != nil {
		b.TxID = *txid
	}
	if checkIn != nil {
		b.CheckInDate = checkIn.UTC()
	}
	if level != nil {
		b.RiskLevel = RiskLevel(*level)
	}
	if reason != nil {
		b.RiskReason = *reason
	}
	return b, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
