package product

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrNotFound   = errors.New("product not found")
	ErrValidation = errors.New("name and price are required")
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// Draft carries the fields accepted on create. A nil Price means the
// client did not send one; zero is a valid price.
type Draft struct {
	Name        string           `json:"name" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Description *string          `json:"description"`
}

// Patch is a shallow merge: nil fields keep the stored value. id, createdAt
// and updatedAt are not part of it, so clients cannot overwrite them.
type Patch struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
}

type ListQuery struct {
	Search string
	Page   int
	Limit  int
}

type Page struct {
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
	Data       []Product `json:"data"`
}

type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context, q ListQuery) (Page, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, d Draft) (Product, error)
	Update(ctx context.Context, id string, p Patch) (Product, error)
	Delete(ctx context.Context, id string) error
}

var validate = validator.New()

func (d Draft) Validate() error {
	if err := validate.Struct(d); err != nil {
		return ErrValidation
	}
	return nil
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	return q
}

func totalPages(total, limit int) int {
	n := total / limit
	if total%limit != 0 {
		n++
	}
	return n
}

func (p Product) clone() Product {
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	if p.UpdatedAt != nil {
		u := *p.UpdatedAt
		p.UpdatedAt = &u
	}
	return p
}
