package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"toolbox/internal/credits/models"
	id "toolbox/pkg/domain"
	txcontext "toolbox/pkg/platform/tx"
)

// PostgresLedgerStore persists accounts and ledger entries. Balance changes
// and their entries commit in one transaction.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresLedgerStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresLedgerStore) FindAccount(ctx context.Context, userID id.UserID) (*models.Account, error) {
	acct := &models.Account{UserID: userID}
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT balance, updated_at FROM credit_accounts WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&acct.Balance, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credit account: %w", err)
	}
	return acct, nil
}

func (s *PostgresLedgerStore) OpenAccount(ctx context.Context, userID id.UserID, opening int, reason string, now time.Time) (*models.Account, error) {
	var acct *models.Account
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		res, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO credit_accounts (user_id, balance, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT (user_id) DO NOTHING`,
			uuid.UUID(userID), opening, now,
		)
		if err != nil {
			return fmt.Errorf("open credit account: %w", err)
		}
		created, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("open credit account: %w", err)
		}
		if created == 1 && opening != 0 {
			if err := s.insertEntry(ctx, models.NewEntry(userID, opening, reason, opening, now)); err != nil {
				return err
			}
		}
		acct, err = s.FindAccount(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Apply changes the balance by delta. The guard in the UPDATE keeps the
// balance within 0..MaxBalance under concurrent writers: a losing debit or an
// overflowing credit matches no row.
func (s *PostgresLedgerStore) Apply(ctx context.Context, userID id.UserID, delta int, reason string, now time.Time) (*models.Account, *models.Entry, error) {
	var (
		acct  *models.Account
		entry *models.Entry
	)
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		var balance int
		err := s.execer(ctx).QueryRowContext(ctx, `
			UPDATE credit_accounts
			SET balance = balance + $2::bigint, updated_at = $3
			WHERE user_id = $1 AND balance + $2::bigint BETWEEN 0 AND $4
			RETURNING balance`,
			uuid.UUID(userID), delta, now, models.MaxBalance,
		).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			if _, findErr := s.FindAccount(ctx, userID); findErr != nil {
				return findErr
			}
			if delta > 0 {
				return ErrBalanceLimit
			}
			return ErrInsufficient
		}
		if err != nil {
			return fmt.Errorf("apply credit delta: %w", err)
		}

		entry = models.NewEntry(userID, delta, reason, balance, now)
		if err := s.insertEntry(ctx, entry); err != nil {
			return err
		}
		acct = &models.Account{UserID: userID, Balance: balance, UpdatedAt: now}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return acct, entry, nil
}

func (s *PostgresLedgerStore) insertEntry(ctx context.Context, e *models.Entry) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO credit_entries (id, user_id, delta, reason, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), e.Delta, e.Reason, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credit entry: %w", err)
	}
	return nil
}

func (s *PostgresLedgerStore) ListEntries(ctx context.Context, userID id.UserID, limit int) ([]*models.Entry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, delta, reason, balance_after, created_at
		FROM credit_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		uuid.UUID(userID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list credit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e := &models.Entry{UserID: userID}
		var entryID uuid.UUID
		if err := rows.Scan(&entryID, &e.Delta, &e.Reason, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit entry: %w", err)
		}
		e.ID = id.EntryID(entryID)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit entries: %w", err)
	}
	return entries, nil
}
