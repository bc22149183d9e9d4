// Package postgres implements the domain repositories on gorm with the
// postgres driver. Soft delete is a store-level default: every model carries
// gorm.DeletedAt, so deleted rows are excluded from all queries unless a
// repository method explicitly goes through Unscoped.
package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/medrec/medrec-api/pkg/pagination"
)

// filterToken narrows the query with a case-insensitive substring match on
// the entity's default search column. An empty token matches all rows.
func filterToken(tx *gorm.DB, column, token string) *gorm.DB {
	if token == "" {
		return tx
	}
	return tx.Where(column+" ILIKE ?", "%"+token+"%")
}

// fetchPage runs the shared count-then-fetch listing against an already
// filtered query. The sort column is resolved through the entity whitelist,
// so it is safe to interpolate into the ORDER BY clause.
func fetchPage[T any](tx *gorm.DB, req pagination.Request, sortable map[string]string, defaultSort string) (pagination.Page[T], error) {
	req = req.Normalize()

	col, err := req.SortColumn(sortable, defaultSort)
	if err != nil {
		return pagination.Page[T]{}, err
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return pagination.Page[T]{}, fmt.Errorf("counting rows: %w", err)
	}

	var rows []T
	if err := tx.
		Order(fmt.Sprintf("%s %s", col, req.Direction())).
		Limit(req.Size).
		Offset(req.Offset()).
		Find(&rows).Error; err != nil {
		return pagination.Page[T]{}, fmt.Errorf("fetching page: %w", err)
	}

	return pagination.New(rows, total, req), nil
}
