package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	// FindByIDForUpdate locks the user row for the duration of the enclosing
	// transaction so concurrent commission evaluations for the same earner
	// are serialized at the storage boundary.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error
}
