package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
)

// adminLockKey serialises role changes and deletions that could affect the
// number of admins.
const adminLockKey = 73011

const accountColumns = `id, email, password_hash, role, created_at, updated_at`

var _ ports.AccountRepository = (*AccountRepository)(nil)

type AccountRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		acc  domain.Account
		role string
	)
	if err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &role, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	acc.Role = domain.Role(role)
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.UpdatedAt = acc.UpdatedAt.UTC()
	return &acc, nil
}

func (r *AccountRepository) Create(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	stored := acc.Clone()
	stored.Email = domain.NormalizeEmail(stored.Email)
	if stored.ID == "" {
		stored.ID = ids.New()
	}
	if stored.Role == "" {
		stored.Role = domain.RoleRegular
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
		stored.UpdatedAt = stored.CreatedAt
	}

	row := r.db.QueryRowContext(ctx,
		`insert into accounts(`+accountColumns+`) values($1,$2,$3,$4,$5,$6) returning `+accountColumns,
		stored.ID, stored.Email, stored.PasswordHash, string(stored.Role), stored.CreatedAt, stored.UpdatedAt,
	)
	created, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return created, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, `select `+accountColumns+` from accounts where id=$1`, id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, `select `+accountColumns+` from accounts where email=$1`, domain.NormalizeEmail(email))
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `select `+accountColumns+` from accounts order by id asc`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (r *AccountRepository) Update(ctx context.Context, id string, upd domain.AccountUpdate) (*domain.Account, error) {
	var email, hash sql.NullString
	if upd.Email != nil {
		email = sql.NullString{String: domain.NormalizeEmail(*upd.Email), Valid: true}
	}
	if upd.PasswordHash != nil {
		hash = sql.NullString{String: *upd.PasswordHash, Valid: true}
	}

	row := r.db.QueryRowContext(ctx,
		`update accounts set email = coalesce($2, email), password_hash = coalesce($3, password_hash), updated_at = $4
		 where id = $1 returning `+accountColumns,
		id, email, hash, r.now(),
	)
	acc, err := scanAccount(row)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrAccountNotFound
		case isUniqueViolation(err):
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return acc, nil
}

// ToggleRole flips the role in one statement that refuses to demote the last
// admin. The advisory lock makes the admin count stable for the statement.
func (r *AccountRepository) ToggleRole(ctx context.Context, id string) (*domain.Account, error) {
	var out *domain.Account
	err := r.withAdminLock(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`update accounts
			 set role = case when role = 'admin' then 'regular' else 'admin' end, updated_at = $2
			 where id = $1
			   and (role <> 'admin' or (select count(*) from accounts where role = 'admin') > 1)
			 returning `+accountColumns,
			id, r.now(),
		)
		acc, err := scanAccount(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return missingOrLastAdmin(ctx, tx, id)
			}
			return fmt.Errorf("toggle role: %w", err)
		}
		out = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	return r.withAdminLock(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`delete from accounts
			 where id = $1
			   and (role <> 'admin' or (select count(*) from accounts where role = 'admin') > 1)`,
			id,
		)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if n == 0 {
			return missingOrLastAdmin(ctx, tx, id)
		}
		return nil
	})
}

func (r *AccountRepository) withAdminLock(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `select pg_advisory_xact_lock($1)`, adminLockKey); err != nil {
		return fmt.Errorf("admin lock: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// missingOrLastAdmin explains why a guarded write matched no row.
func missingOrLastAdmin(ctx context.Context, tx *sql.Tx, id string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `select exists(select 1 from accounts where id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return domain.ErrAccountNotFound
	}
	return domain.ErrLastAdmin
}
