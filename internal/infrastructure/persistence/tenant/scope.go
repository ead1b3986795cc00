// Package tenant scopes GORM queries to a single tenant. Every tenant-owned
// table carries a tenant_id column; repositories apply these scopes instead
// of repeating the predicate by hand, so a query over tenant-owned rows
// cannot forget the isolation filter.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a scope is applied with a nil tenant ID.
var ErrTenantIDRequired = errors.New("tenant id is required")

// Scope restricts a query to rows owned by the given tenant. A nil tenant ID
// poisons the query rather than silently matching every tenant's rows.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where("tenant_id = ?", tenantID)
	}
}

// Owned restricts a query to a single row by primary key, still bounded by
// the owning tenant. Lookups with the wrong tenant come back as not-found,
// never as another tenant's row.
func Owned(id, tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where("id = ? AND tenant_id = ?", id, tenantID)
	}
}
