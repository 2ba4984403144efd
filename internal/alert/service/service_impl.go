package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/smallbiznis/menusready/internal/alert/domain"
	"github.com/smallbiznis/menusready/internal/config"
	alertprovider "github.com/smallbiznis/menusready/internal/providers/alert"
	"github.com/smallbiznis/menusready/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const alertTimeLayout = "Jan 2, 2006 3:04 PM MST"

type Params struct {
	fx.In

	Config   config.Config
	Settings *config.PublicationSettingsHolder
	Provider alertprovider.Provider
	Email    email.Provider
	Log      *zap.Logger
}

type Service struct {
	appURL   string
	settings *config.PublicationSettingsHolder
	provider alertprovider.Provider
	email    email.Provider
	log      *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		appURL:   p.Config.AppURL,
		settings: p.Settings,
		provider: p.Provider,
		email:    p.Email,
		log:      p.Log.Named("alert.service"),
	}
}

func (s *Service) PaymentReceived(ctx context.Context, a domain.PaymentReceived) error {
	amount := a.AmountLabel
	if amount == "" {
		amount = s.settings.Get().AmountLabel
	}
	text := strings.Join([]string{
		"💰 New Menus Ready purchase",
		"",
		"Restaurant: " + a.Restaurant,
		"Slug: " + a.Slug,
		"Customer email: " + a.CustomerEmail,
		"Amount: " + amount,
		"Time: " + a.At.UTC().Format(alertTimeLayout),
		"",
		"Preview: " + s.appURL + "/preview/" + a.Slug,
	}, "\n")

	err := s.provider.Notify(ctx, text)
	if mailErr := s.mailRecipients(ctx, "New Menus Ready purchase: "+a.Restaurant, text); mailErr != nil {
		err = errors.Join(err, mailErr)
	}
	return err
}

func (s *Service) DeliveryFailed(ctx context.Context, a domain.DeliveryFailure) error {
	text := fmt.Sprintf("⚠️ Delivery failed\n\nSlug: %s\nJob: %s\nStage: %s\nAttempts: %d\nError: %s",
		a.Slug, a.JobID, a.Stage, a.Attempts, a.Error)
	return s.provider.Notify(ctx, text)
}

func (s *Service) HelpRequested(ctx context.Context, req domain.HelpRequest) error {
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	text := strings.Join([]string{
		"🚨 New Help Request!",
		"",
		"Name: " + orNotProvided(req.Name),
		"Restaurant: " + orNotProvided(req.Restaurant),
		"Message: " + orNotProvided(req.Message),
		"Time: " + at.UTC().Format(alertTimeLayout),
	}, "\n")
	return s.provider.Notify(ctx, text)
}

func (s *Service) mailRecipients(ctx context.Context, subject, text string) error {
	recipients := s.settings.Get().AlertRecipients
	if len(recipients) == 0 {
		return nil
	}
	body := "<pre>" + html.EscapeString(text) + "</pre>"
	return s.email.Send(ctx, email.Message{To: recipients, Subject: subject, HTMLBody: body})
}

func orNotProvided(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Not provided"
	}
	return strings.TrimSpace(v)
}
