package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ColumnCatalog lists the physical column names of the legacy employee table.
type ColumnCatalog interface {
	ColumnNames(ctx context.Context) ([]string, error)
}

type gormColumnCatalog struct {
	db    *gorm.DB
	table string
}

func NewColumnCatalog(db *gorm.DB, table string) ColumnCatalog {
	return &gormColumnCatalog{db: db, table: table}
}

func (c *gormColumnCatalog) ColumnNames(ctx context.Context) ([]string, error) {
	migrator := c.db.WithContext(ctx).Migrator()
	if !migrator.HasTable(c.table) {
		return nil, fmt.Errorf("legacy table %q does not exist", c.table)
	}
	types, err := migrator.ColumnTypes(c.table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %q: %w", c.table, err)
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name())
	}
	return names, nil
}
