package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/menusready/internal/alert/domain"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/providers/email"
	emailmock "github.com/smallbiznis/menusready/internal/providers/email/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingProvider struct {
	messages []string
}

func (r *recordingProvider) Notify(_ context.Context, text string) error {
	r.messages = append(r.messages, text)
	return nil
}

func newTestService(t *testing.T, settings config.PublicationSettings, mailer email.Provider) (*Service, *recordingProvider) {
	t.Helper()
	rec := &recordingProvider{}
	svc := New(Params{
		Config:   config.Config{AppURL: "https://menusready.test"},
		Settings: config.NewStaticPublicationSettings(settings),
		Provider: rec,
		Email:    mailer,
		Log:      zap.NewNop(),
	}).(*Service)
	return svc, rec
}

func TestPaymentReceivedPostsAlertAndMailsRecipients(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := emailmock.NewMockProvider(ctrl)

	settings := config.DefaultPublicationSettings()
	settings.AlertRecipients = []string{"ops@menusready.com"}
	svc, rec := newTestService(t, settings, mailer)

	mailer.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg email.Message) error {
			require.Equal(t, []string{"ops@menusready.com"}, msg.To)
			require.Contains(t, msg.Subject, "Harbor Diner")
			return nil
		})

	err := svc.PaymentReceived(context.Background(), domain.PaymentReceived{
		Restaurant:    "Harbor Diner",
		Slug:          "harbor-diner",
		CustomerEmail: "owner@harbordiner.com",
		At:            time.Date(2026, 4, 1, 15, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, rec.messages, 1)
	msg := rec.messages[0]
	require.Contains(t, msg, "Amount: $99")
	require.Contains(t, msg, "Customer email: owner@harbordiner.com")
	require.Contains(t, msg, "https://menusready.test/preview/harbor-diner")
}

func TestHelpRequestedDefaultsMissingFields(t *testing.T) {
	svc, rec := newTestService(t, config.DefaultPublicationSettings(), &email.NoOpProvider{})

	require.NoError(t, svc.HelpRequested(context.Background(), domain.HelpRequest{Name: "Dana"}))
	require.Len(t, rec.messages, 1)
	require.True(t, strings.Contains(rec.messages[0], "Name: Dana"))
	require.True(t, strings.Contains(rec.messages[0], "Restaurant: Not provided"))
	require.True(t, strings.Contains(rec.messages[0], "Message: Not provided"))
}
