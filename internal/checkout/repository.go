package checkout

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save inserts the session or, when its id is already stored, updates the
// fields that change after initiation.
func (r *SessionRepository) Save(ctx context.Context, s *domain.PaymentSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_sessions (
			id, order_id, amount, bank_code, language, return_url,
			gateway_redirect_url, ipn_status, raw_confirmation, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			gateway_redirect_url = EXCLUDED.gateway_redirect_url,
			ipn_status = EXCLUDED.ipn_status,
			raw_confirmation = EXCLUDED.raw_confirmation,
			updated_at = EXCLUDED.updated_at
	`, s.ID, s.OrderID, s.Amount, s.BankCode, s.Language, s.ReturnURL,
		s.GatewayRedirectURL, s.IPNStatus, s.RawConfirmation, s.CreatedAt, s.UpdatedAt)
	return err
}

const sessionColumns = `
	id, order_id, amount, bank_code, language, return_url,
	gateway_redirect_url, ipn_status, raw_confirmation, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.PaymentSession, error) {
	s := &domain.PaymentSession{}
	err := row.Scan(&s.ID, &s.OrderID, &s.Amount, &s.BankCode, &s.Language, &s.ReturnURL,
		&s.GatewayRedirectURL, &s.IPNStatus, &s.RawConfirmation, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.PaymentSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SessionRepository) LatestByOrder(ctx context.Context, orderID string) (*domain.PaymentSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListByStatus returns sessions in any of statuses, newest first. Pending
// sessions left behind by indeterminate confirmations are found this way.
func (r *SessionRepository) ListByStatus(ctx context.Context, statuses ...domain.IPNStatus) ([]domain.PaymentSession, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions
		WHERE ipn_status = ANY($1)
		ORDER BY created_at DESC
	`, pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sessions := []domain.PaymentSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}
