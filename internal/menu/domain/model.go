package domain

import (
	"time"

	"gorm.io/datatypes"
)

type State string

const (
	StateDraft      State = "draft"
	StatePreviewing State = "previewing"
	StatePaid       State = "paid"
)

// Item is a single dish. Price is kept as the raw string the owner typed.
type Item struct {
	Name        string `json:"name"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
}

type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Content is the ordered menu body.
type Content struct {
	Categories []Category `json:"categories"`
}

type Menu struct {
	ID              int64                       `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Slug            string                      `json:"slug" gorm:"type:text;not null;uniqueIndex:ux_menus_slug"`
	Restaurant      string                      `json:"restaurant" gorm:"type:text;not null"`
	Location        string                      `json:"location" gorm:"type:text;not null;default:''"`
	Content         datatypes.JSONType[Content] `json:"content"`
	State           State                       `json:"state" gorm:"type:text;not null;default:'draft'"`
	PaidAt          *time.Time                  `json:"paid_at,omitempty"`
	CustomerEmail   *string                     `json:"customer_email,omitempty" gorm:"type:text"`
	FreePublishedAt *time.Time                  `json:"free_published_at,omitempty"`
	OwnerEmail      *string                     `json:"owner_email,omitempty" gorm:"type:text"`
	CreatedAt       time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time                   `json:"updated_at" gorm:"not null"`
}

func (Menu) TableName() string { return "menus" }

func (m *Menu) IsPaid() bool { return m != nil && m.State == StatePaid }

// Published reports whether the menu is live, paid or free.
func (m *Menu) Published() bool {
	return m != nil && (m.State == StatePaid || m.FreePublishedAt != nil)
}

// Deliverables is the generated bundle for a paid menu. One row per slug.
type Deliverables struct {
	Slug              string    `json:"slug" gorm:"primaryKey;type:text"`
	QRCodePNG         []byte    `json:"-" gorm:"column:qr_code_png"`
	PrintableDocument []byte    `json:"-" gorm:"column:printable_document"`
	PlainText         string    `json:"-" gorm:"column:plain_text;type:text"`
	ContentDigest     string    `json:"content_digest" gorm:"type:text;not null"`
	GeneratedAt       time.Time `json:"generated_at" gorm:"not null"`
}

func (Deliverables) TableName() string { return "menu_deliverables" }

// Transition carries the columns stamped alongside a state change.
type Transition struct {
	PaidAt        *time.Time
	CustomerEmail *string
	UpdatedAt     time.Time
}
