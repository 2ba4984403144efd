package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menusready/internal/auth/password"
	"github.com/smallbiznis/menusready/internal/authorization"
	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/operator/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Config config.Config
	GenID  *snowflake.Node
	Clock  clock.Clock
	Log    *zap.Logger
	Repo   domain.Repository
	Authz  authorization.Service
}

type Service struct {
	db         *gorm.DB
	genID      *snowflake.Node
	clock      clock.Clock
	log        *zap.Logger
	repo       domain.Repository
	authz      authorization.Service
	tokens     *tokenIssuer
	hashParams password.Params
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		genID:      p.GenID,
		clock:      p.Clock,
		log:        p.Log.Named("operator.service"),
		repo:       p.Repo,
		authz:      p.Authz,
		tokens:     newTokenIssuer(p.Config.Operator.JWTSecret, p.Config.Operator.TokenTTL, p.Clock),
		hashParams: password.DefaultParams,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Operator, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = authorization.RoleOperator
	}
	if !authorization.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	hash, err := password.HashWith(req.Password, s.hashParams)
	if err != nil {
		return nil, err
	}

	op := &domain.Operator{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, s.db, op); err != nil {
		return nil, err
	}
	s.log.Info("operator created", zap.String("operator_id", op.ID.String()), zap.String("role", role))
	return op, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Token, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	op, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if op == nil || !password.Verify(req.Password, op.PasswordHash) {
		s.log.Info("operator login rejected", zap.String("email", email))
		return nil, domain.ErrInvalidCredentials
	}

	if password.NeedsRehash(op.PasswordHash, s.hashParams) {
		if hash, err := password.HashWith(req.Password, s.hashParams); err == nil {
			if err := s.repo.UpdatePasswordHash(ctx, s.db, op.ID, hash); err != nil {
				s.log.Warn("operator password rehash failed", zap.String("operator_id", op.ID.String()), zap.Error(err))
			}
		}
	}

	return s.tokens.issue(op)
}

// IssueToken signs a token without a password check. It backs the CLI only.
func (s *Service) IssueToken(ctx context.Context, email string) (*domain.Token, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	op, err := s.repo.FindByEmail(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, domain.ErrOperatorNotFound
	}
	return s.tokens.issue(op)
}

// Authenticate resolves a bearer token to an actor. The role comes from the
// stored operator so a demotion applies before the token expires.
func (s *Service) Authenticate(ctx context.Context, raw string) (authorization.Actor, error) {
	claims, err := s.tokens.parse(raw)
	if err != nil {
		return authorization.Actor{}, err
	}
	id, err := snowflake.ParseString(claims.Subject)
	if err != nil || id == 0 {
		return authorization.Actor{}, domain.ErrInvalidToken
	}
	op, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return authorization.Actor{}, err
	}
	if op == nil {
		return authorization.Actor{}, domain.ErrInvalidToken
	}
	return authorization.Actor{OperatorID: op.ID.String(), Role: op.Role}, nil
}

func (s *Service) Authorize(ctx context.Context, actor authorization.Actor, permission string) error {
	if err := s.authz.Authorize(ctx, actor, permission); err != nil {
		if errors.Is(err, authorization.ErrForbidden) {
			return err
		}
		return fmt.Errorf("authorize %s: %w", permission, err)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
