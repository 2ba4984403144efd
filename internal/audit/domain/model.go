package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeOperator ActorType = "operator"
	ActorTypeSystem   ActorType = "system"
)

const (
	ActionMenuCreate        = "menu.create"
	ActionMenuUpdateContent = "menu.update_content"
	ActionMenuRegenerate    = "menu.regenerate"
	ActionDeliveriesRetry   = "deliveries.retry"
	ActionOperatorLogin     = "operator.login"
)

const (
	TargetMenu          = "menu"
	TargetDeliverySweep = "delivery_sweep"
	TargetOperator      = "operator"
)

// AuditLog is one operator or system action against the admin surface.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ActorType  string            `json:"actor_type" gorm:"type:varchar(32);not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:varchar(128)"`
	Action     string            `json:"action" gorm:"type:varchar(64);not null;index"`
	TargetType string            `json:"target_type" gorm:"type:varchar(32);not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:varchar(128);index"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"type:varchar(64)"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is what callers hand to Record. Actor fields fall back to the
// actor stored on the context.
type Entry struct {
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	BeforeID   int64
	Limit      int
}
