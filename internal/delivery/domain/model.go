package domain

import "time"

type Reason string

const (
	ReasonPayment    Reason = "payment"
	ReasonRegenerate Reason = "regenerate"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func ParseStatus(v string) (Status, bool) {
	switch Status(v) {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return Status(v), true
	}
	return "", false
}

// Stage names the step a job reached.
type Stage string

const (
	StageClaim    Stage = "claim"
	StageLoad     Stage = "load"
	StageGenerate Stage = "generate"
	StageAttach   Stage = "attach"
	StageNotify   Stage = "notify"
	StageAlert    Stage = "alert"
	StageComplete Stage = "complete"
)

// Job is a delivery outbox row. One is enqueued per paid transition and
// per operator regenerate.
type Job struct {
	ID             int64      `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Slug           string     `json:"slug" gorm:"type:varchar(128);not null;index"`
	IdempotencyKey string     `json:"idempotency_key" gorm:"type:varchar(255);not null;uniqueIndex:ux_delivery_jobs_idempotency_key"`
	Reason         Reason     `json:"reason" gorm:"type:varchar(16);not null"`
	EventID        string     `json:"event_id,omitempty" gorm:"type:varchar(255);not null;default:''"`
	Status         Status     `json:"status" gorm:"type:varchar(16);not null;index:ix_delivery_jobs_due,priority:1"`
	Attempts       int        `json:"attempts" gorm:"not null;default:0"`
	LastError      *string    `json:"last_error,omitempty" gorm:"type:text"`
	NextAttemptAt  time.Time  `json:"next_attempt_at" gorm:"not null;index:ix_delivery_jobs_due,priority:2"`
	GeneratedAt    *time.Time `json:"generated_at,omitempty"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"not null"`
}

func (Job) TableName() string { return "delivery_jobs" }

func PaymentKey(slug, eventID string) string {
	return slug + ":" + eventID
}

func RegenerateKey(slug, id string) string {
	return "regenerate:" + slug + ":" + id
}

// Outcome is the asynchronous result of one delivery run.
type Outcome struct {
	JobID    int64  `json:"job_id,string"`
	Slug     string `json:"slug"`
	Status   Status `json:"status"`
	Stage    Stage  `json:"stage"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts"`
	Skipped  bool   `json:"skipped,omitempty"`
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// ListFilter narrows operator job listings.
type ListFilter struct {
	Status Status
	Slug   string
	// BeforeID is an exclusive upper bound on the job id; zero disables it.
	BeforeID int64
	Limit    int
}
