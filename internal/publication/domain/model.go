package domain

import (
	"github.com/smallbiznis/menusready/internal/deliverable"
	deliverydomain "github.com/smallbiznis/menusready/internal/delivery/domain"
	"github.com/smallbiznis/menusready/internal/expiry"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	"github.com/smallbiznis/menusready/pkg/db/pagination"
)

type CheckoutIntent struct {
	RedirectURL string `json:"url"`
	SessionID   string `json:"sessionId"`
}

// AcceptStatus is the synchronous answer to a verified payment notification.
type AcceptStatus string

const (
	AcceptAccepted    AcceptStatus = "accepted"
	AcceptDuplicate   AcceptStatus = "duplicate"
	AcceptIgnored     AcceptStatus = "ignored"
	AcceptMalformed   AcceptStatus = "malformed"
	AcceptUnpaid      AcceptStatus = "unpaid"
	AcceptUnknownMenu AcceptStatus = "unknown_menu"
)

type PaymentAccepted struct {
	Status        AcceptStatus `json:"status"`
	Slug          string       `json:"slug,omitempty"`
	EventID       string       `json:"eventId,omitempty"`
	DeliveryJobID int64        `json:"deliveryJobId,omitempty,string"`
}

type Preview struct {
	Menu      *menudomain.Menu `json:"menu"`
	Published bool             `json:"published"`
}

// PreviewView is a preview together with the viewing client's expiry.
// Expiry is nil for published menus.
type PreviewView struct {
	Preview
	Expiry *expiry.Status `json:"preview,omitempty"`
}

type PublishFreeRequest struct {
	Slug             string `json:"slug"`
	Email            string `json:"email"`
	ConfirmOwnership bool   `json:"confirmOwnership"`
}

type PublishFreeResult struct {
	LiveURL string `json:"liveUrl"`
}

type SessionVerification struct {
	Valid      bool   `json:"valid"`
	Restaurant string `json:"restaurant"`
}

type CreateMenuRequest struct {
	Slug       string                `json:"slug"`
	Restaurant string                `json:"restaurant"`
	Location   string                `json:"location"`
	Categories []menudomain.Category `json:"categories"`
}

// HelpField is one labelled field of a form webhook payload.
type HelpField struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

type HelpRequest struct {
	Data struct {
		Fields []HelpField `json:"fields"`
	} `json:"data"`
}

type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

func DownloadFilename(slug string, kind deliverable.Kind) string {
	switch kind {
	case deliverable.KindQR:
		return slug + "-qr-code.png"
	case deliverable.KindPDF:
		return slug + "-menu.pdf"
	default:
		return slug + "-menu.txt"
	}
}

type ListDeliveriesRequest struct {
	Status    string
	Slug      string
	Limit     int
	PageToken string
}

type ListDeliveriesResponse struct {
	Jobs     []deliverydomain.Job `json:"jobs"`
	PageInfo pagination.PageInfo  `json:"page_info"`
}
