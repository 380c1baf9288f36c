package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert collides with a unique index
var ErrDuplicate = errors.New("duplicate record")

// translateDuplicate maps a unique-index violation onto ErrDuplicate
func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // API field name
	Order SortOrder // asc or desc
}

// DefaultSortConfig sorts newest first
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "createdAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the ORDER BY clause from a whitelist of API field → column.
// Unknown fields fall back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// likePattern lowercases s and wraps it for a LOWER(col) LIKE ? comparison
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

type groupCount struct {
	Name  string
	Count int64
}

// countGroupedBy counts rows of query grouped by a trusted column name
func countGroupedBy(query *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	err := query.Select(column + " AS name, COUNT(*) AS count").Group(column).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Name] = row.Count
	}
	return counts, nil
}

type dealCount struct {
	DealID uint
	Count  int64
}

// countByDeal counts rows of query per deal_id for the given deals
func countByDeal(query *gorm.DB, dealIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(dealIDs))
	if len(dealIDs) == 0 {
		return counts, nil
	}
	var rows []dealCount
	err := query.Select("deal_id, COUNT(*) AS count").
		Where("deal_id IN ?", dealIDs).
		Group("deal_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.DealID] = row.Count
	}
	return counts, nil
}
