package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/menusready/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListRequest struct {
	Action     string
	TargetType string
	TargetID   string
	PageSize   int
	PageToken  string
}

type ListResponse struct {
	AuditLogs []AuditLog          `json:"audit_logs"`
	PageInfo  pagination.PageInfo `json:"page_info"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

var ErrInvalidAction = errors.New("invalid_action")
