package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateUserRequest struct {
	Name string
}

type SetActiveRequest struct {
	UserID snowflake.ID
	Active bool
}

type Service interface {
	Create(context.Context, CreateUserRequest) (User, error)
	GetByID(context.Context, snowflake.ID) (User, error)
	SetActive(context.Context, SetActiveRequest) (User, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrNotFound      = errors.New("user_not_found")
	ErrAlreadyExists = errors.New("user_already_exists")
)
