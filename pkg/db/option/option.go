package option

import (
	"fmt"
	"strings"
	"time"

	"campaign-rewards/pkg/db/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QueryOption func(db *gorm.DB) *gorm.DB

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func ApplyOperator(conds ...Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range conds {
			if c.Operator == IN {
				db = db.Where(fmt.Sprintf("%s IN ?", c.Field), c.Value)
				continue
			}
			db = db.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
		}
		return db
	}
}

// Between filters field to the half-open range [from, to).
func Between(field string, from, to time.Time) QueryOption {
	return ApplyOperator(
		Condition{Field: field, Operator: GTE, Value: from},
		Condition{Field: field, Operator: LT, Value: to},
	)
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithSortBy(s QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		order := "ASC"
		if strings.EqualFold(s.OrderBy, "desc") {
			order = "DESC"
		}

		if s.SortBy == "" || (s.Allow != nil && !s.Allow[s.SortBy]) {
			return db
		}

		return db.Order(fmt.Sprintf("%s %s", s.SortBy, order))
	}
}

// ApplyPagination fetches one row more than the limit so the caller can
// tell whether another page exists. The cursor is the last seen primary key.
func ApplyPagination(p pagination.Pagination, keyField string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		limit := p.PageSize()

		if p.Cursor != "" {
			if cursor, err := pagination.DecodeCursor(p.Cursor); err == nil && cursor.ID != "" {
				db = db.Where(fmt.Sprintf("%s < ?", keyField), cursor.ID)
			}
		}

		return db.Order(fmt.Sprintf("%s DESC", keyField)).Limit(limit + 1)
	}
}

// LockingUpdate adds SELECT ... FOR UPDATE on dialects that support it.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func WithLockingUpdate() QueryOption {
	return LockingUpdate
}
