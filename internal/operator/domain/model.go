package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Operator is an internal user allowed to run remediation actions.
type Operator struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Email        string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`
	Role         string       `gorm:"type:text;not null" json:"role"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (Operator) TableName() string { return "operators" }

type CreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token is a signed operator access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}
