package domain

import (
	"context"

	"github.com/smallbiznis/menusready/internal/authorization"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Operator, error)
	Login(ctx context.Context, req LoginRequest) (*Token, error)
	IssueToken(ctx context.Context, email string) (*Token, error)
	Authenticate(ctx context.Context, token string) (authorization.Actor, error)
	Authorize(ctx context.Context, actor authorization.Actor, permission string) error
}
