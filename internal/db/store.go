package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"citycoin/internal/ledger"
)

var ErrTxConflict = errors.New("transaction conflict, retry")

// Store implements ledger.Store on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const maxAttempts = 8

// withRetry runs fn in a serializable transaction, retrying on SQLSTATE
// 40001 with capped exponential backoff.
func (s *Store) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func selectAccount(ctx context.Context, tx pgx.Tx, id string, forUpdate bool) (*ledger.Account, error) {
	q := `SELECT data FROM accounts WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var raw []byte
	if err := tx.QueryRow(ctx, q, id).Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, err
	}
	var a ledger.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}
	return &a, nil
}

func updateAccount(ctx context.Context, tx pgx.Tx, a *ledger.Account) error {
	a.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", a.ID, err)
	}
	_, err = tx.Exec(ctx, `UPDATE accounts SET data = $2 WHERE id = $1`, a.ID, raw)
	return err
}

func (s *Store) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM accounts WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, err
	}
	var a ledger.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}
	return &a, nil
}

func (s *Store) GetOrCreateAccount(ctx context.Context, id string, startingCash int64) (*ledger.Account, error) {
	fresh := ledger.NewAccount(id, startingCash, time.Now().UTC())
	raw, err := json.Marshal(fresh)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO accounts (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, raw)
	if err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, id)
}

func (s *Store) Mutate(ctx context.Context, id string, fn func(*ledger.Account) error) (*ledger.Account, error) {
	var out *ledger.Account
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		a, err := selectAccount(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		if err := updateAccount(ctx, tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MutatePair(ctx context.Context, idA, idB string, fn func(a, b *ledger.Account) error) error {
	// Lock rows in ID order so concurrent pairs cannot deadlock.
	first, second := idA, idB
	if strings.Compare(idA, idB) > 0 {
		first, second = idB, idA
	}
	return s.withRetry(ctx, func(tx pgx.Tx) error {
		f, err := selectAccount(ctx, tx, first, true)
		if err != nil {
			return err
		}
		sec, err := selectAccount(ctx, tx, second, true)
		if err != nil {
			return err
		}
		a, b := f, sec
		if first != idA {
			a, b = sec, f
		}
		if err := fn(a, b); err != nil {
			return err
		}
		if err := updateAccount(ctx, tx, a); err != nil {
			return err
		}
		return updateAccount(ctx, tx, b)
	})
}

func (s *Store) ListAccounts(ctx context.Context) ([]*ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Account
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var a ledger.Account
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func guildNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func selectGuild(ctx context.Context, tx pgx.Tx, id string, forUpdate bool) (*ledger.Guild, error) {
	q := `SELECT data FROM guilds WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var raw []byte
	if err := tx.QueryRow(ctx, q, id).Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrGuildNotFound
		}
		return nil, err
	}
	var g ledger.Guild
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode guild %s: %w", id, err)
	}
	return &g, nil
}

func updateGuild(ctx context.Context, tx pgx.Tx, g *ledger.Guild) error {
	g.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode guild %s: %w", g.ID, err)
	}
	_, err = tx.Exec(ctx, `UPDATE guilds SET data = $2 WHERE id = $1`, g.ID, raw)
	return err
}

func (s *Store) GetGuild(ctx context.Context, id string) (*ledger.Guild, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM guilds WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrGuildNotFound
		}
		return nil, err
	}
	var g ledger.Guild
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode guild %s: %w", id, err)
	}
	return &g, nil
}

func (s *Store) CreateGuild(ctx context.Context, g *ledger.Guild) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO guilds (id, name_key, data) VALUES ($1, $2, $3)
	`, g.ID, guildNameKey(g.Name), raw)
	if isUniqueViolation(err) {
		return ledger.ErrGuildExists
	}
	return err
}

func (s *Store) MutateGuild(ctx context.Context, id string, fn func(*ledger.Guild) error) (*ledger.Guild, error) {
	var out *ledger.Guild
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		g, err := selectGuild(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
		if err := updateGuild(ctx, tx, g); err != nil {
			return err
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MutateGuildPair(ctx context.Context, idA, idB string, fn func(a, b *ledger.Guild) error) error {
	first, second := idA, idB
	if strings.Compare(idA, idB) > 0 {
		first, second = idB, idA
	}
	return s.withRetry(ctx, func(tx pgx.Tx) error {
		f, err := selectGuild(ctx, tx, first, true)
		if err != nil {
			return err
		}
		sec, err := selectGuild(ctx, tx, second, true)
		if err != nil {
			return err
		}
		a, b := f, sec
		if first != idA {
			a, b = sec, f
		}
		if err := fn(a, b); err != nil {
			return err
		}
		if err := updateGuild(ctx, tx, a); err != nil {
			return err
		}
		return updateGuild(ctx, tx, b)
	})
}

func (s *Store) ListGuilds(ctx context.Context) ([]*ledger.Guild, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM guilds ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Guild
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var g ledger.Guild
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (s *Store) DeleteGuild(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM guilds WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrGuildNotFound
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}

var _ ledger.Store = (*Store)(nil)
