package product

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

const productColumns = `id, name, price, description, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) List(ctx context.Context, q ListQuery) (Page, error) {
	q = q.normalized()

	out := Page{Page: q.Page, Data: []Product{}}

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		// count and page must come from the same snapshot
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := tx.QueryRowContext(ctx, `
			SELECT count(*)
			FROM products
			WHERE $1 = '' OR strpos(lower(name), lower($1)) > 0
		`, q.Search).Scan(&out.Total); err != nil {
			return err
		}

		out.TotalPages = totalPages(out.Total, q.Limit)
		if q.Page > out.TotalPages {
			return tx.Commit()
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT `+productColumns+`
			FROM products
			WHERE $1 = '' OR strpos(lower(name), lower($1)) > 0
			ORDER BY seq ASC
			LIMIT $2 OFFSET $3
		`, q.Search, q.Limit, int64(q.Page-1)*int64(q.Limit))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out.Data = append(out.Data, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return Page{}, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		p, err = scanProduct(s.db.QueryRowContext(ctx, `
			SELECT `+productColumns+`
			FROM products
			WHERE id = $1
		`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) Create(ctx context.Context, d Draft) (Product, error) {
	if err := d.Validate(); err != nil {
		return Product{}, err
	}

	var p Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		p, err = scanProduct(s.db.QueryRowContext(ctx, `
			INSERT INTO products (id, name, price, description, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+productColumns,
			"p_"+uuid.NewString(), d.Name, *d.Price, nullString(d.Description), time.Now().UTC()))
		return err
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	var price decimal.NullDecimal
	if patch.Price != nil {
		price = decimal.NewNullDecimal(*patch.Price)
	}

	var p Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		p, err = scanProduct(s.db.QueryRowContext(ctx, `
			UPDATE products
			SET name        = COALESCE($2, name),
			    price       = COALESCE($3, price),
			    description = COALESCE($4, description),
			    updated_at  = $5
			WHERE id = $1
			RETURNING `+productColumns,
			id, nullString(patch.Name), price, nullString(patch.Description), time.Now().UTC()))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p       Product
		desc    sql.NullString
		updated sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &desc, &p.CreatedAt, &updated); err != nil {
		return Product{}, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	if updated.Valid {
		t := updated.Time.UTC()
		p.UpdatedAt = &t
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
