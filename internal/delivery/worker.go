package delivery

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	alertdomain "github.com/smallbiznis/menusready/internal/alert/domain"
	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/deliverable"
	"github.com/smallbiznis/menusready/internal/delivery/domain"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	obsmetrics "github.com/smallbiznis/menusready/internal/observability/metrics"
	"github.com/smallbiznis/menusready/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxErrorLength = 1000

type Params struct {
	fx.In

	DB              *gorm.DB
	AppConfig       config.Config
	Config          Config
	Repo            domain.Repository
	MenuRepo        menudomain.Repository
	Generator       *deliverable.Generator
	Email           email.Provider
	Alerts          alertdomain.Service
	Clock           clock.Clock
	Log             *zap.Logger
	Metrics         *obsmetrics.Metrics         `optional:"true"`
	DeliveryMetrics *obsmetrics.DeliveryMetrics `optional:"true"`
}

// Worker runs one delivery job to completion: generate, attach, notify.
// Every step is stamped on the job so a retry resumes where the last run
// stopped.
type Worker struct {
	db        *gorm.DB
	cfg       Config
	appURL    string
	repo      domain.Repository
	menuRepo  menudomain.Repository
	generator *deliverable.Generator
	email     email.Provider
	alerts    alertdomain.Service
	clock     clock.Clock
	log       *zap.Logger
	sinks     []OutcomeSink
}

func NewWorker(p Params) *Worker {
	log := p.Log.Named("delivery.worker")
	cfg := p.Config.withDefaults()
	return &Worker{
		db:        p.DB,
		cfg:       cfg,
		appURL:    p.AppConfig.AppURL,
		repo:      p.Repo,
		menuRepo:  p.MenuRepo,
		generator: p.Generator,
		email:     p.Email,
		alerts:    p.Alerts,
		clock:     p.Clock,
		log:       log,
		sinks: []OutcomeSink{
			logSink{log: log},
			metricsSink{metrics: p.Metrics, delivery: p.DeliveryMetrics},
			alertSink{alerts: p.Alerts, maxAttempts: cfg.MaxAttempts, log: log},
		},
	}
}

// AddSink registers an extra outcome receiver. Not safe to call once
// workers are running.
func (w *Worker) AddSink(sink OutcomeSink) {
	if sink != nil {
		w.sinks = append(w.sinks, sink)
	}
}

// Process claims and runs a job. A job that is already running elsewhere
// or has finished is reported as skipped.
func (w *Worker) Process(ctx context.Context, jobID int64) domain.Outcome {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	now := w.clock.Now()
	claimed, err := w.repo.Claim(ctx, w.db, jobID, now, now.Add(-w.cfg.StaleAfter))
	if err != nil {
		return w.emit(ctx, domain.Outcome{JobID: jobID, Status: domain.StatusFailed, Stage: domain.StageClaim, Err: err})
	}

	job, err := w.repo.FindByID(ctx, w.db, jobID)
	if err != nil {
		return w.emit(ctx, domain.Outcome{JobID: jobID, Status: domain.StatusFailed, Stage: domain.StageClaim, Err: err})
	}
	if job == nil {
		return w.emit(ctx, domain.Outcome{JobID: jobID, Status: domain.StatusFailed, Stage: domain.StageClaim, Err: domain.ErrJobNotFound})
	}
	if !claimed {
		return w.emit(ctx, domain.Outcome{
			JobID:    job.ID,
			Slug:     job.Slug,
			Status:   job.Status,
			Stage:    domain.StageClaim,
			Attempts: job.Attempts,
			Skipped:  true,
		})
	}

	stage, err := w.run(ctx, job)
	if err != nil {
		return w.fail(ctx, job, stage, err)
	}

	if err := w.repo.MarkSucceeded(ctx, w.db, job.ID, w.clock.Now()); err != nil {
		return w.fail(ctx, job, domain.StageComplete, err)
	}
	return w.emit(ctx, domain.Outcome{
		JobID:    job.ID,
		Slug:     job.Slug,
		Status:   domain.StatusSucceeded,
		Stage:    domain.StageComplete,
		Attempts: job.Attempts,
	})
}

func (w *Worker) run(ctx context.Context, job *domain.Job) (domain.Stage, error) {
	menu, err := w.menuRepo.FindBySlug(ctx, w.db, job.Slug)
	if err != nil {
		return domain.StageLoad, err
	}
	if menu == nil {
		return domain.StageLoad, menudomain.ErrNotFound
	}
	if !menu.IsPaid() {
		return domain.StageLoad, menudomain.ErrNotPaid
	}

	var deliverables *menudomain.Deliverables
	if job.GeneratedAt == nil {
		bundle, err := w.generator.Generate(ctx, menu.Slug, deliverable.DocumentFor(menu))
		if err != nil {
			return domain.StageGenerate, err
		}
		at := w.clock.Now()
		deliverables = bundle.Deliverables(at)
		if err := w.menuRepo.AttachDeliverables(ctx, w.db, deliverables); err != nil {
			return domain.StageAttach, err
		}
		if err := w.repo.MarkGenerated(ctx, w.db, job.ID, at); err != nil {
			return domain.StageAttach, err
		}
	}

	if job.NotifiedAt != nil || job.Reason != domain.ReasonPayment {
		return domain.StageComplete, nil
	}

	if deliverables == nil {
		deliverables, err = w.menuRepo.FindDeliverables(ctx, w.db, menu.Slug)
		if err != nil {
			return domain.StageNotify, err
		}
		if deliverables == nil {
			return domain.StageNotify, menudomain.ErrDeliverablesNotFound
		}
	}

	if err := w.notifyOwner(ctx, menu, deliverables); err != nil {
		return domain.StageNotify, err
	}

	// The owner already has their files; a lost internal alert must not
	// resend them on retry.
	alert := alertdomain.PaymentReceived{
		Restaurant:    menu.Restaurant,
		Slug:          menu.Slug,
		CustomerEmail: stringValue(menu.CustomerEmail),
		At:            timeValue(menu.PaidAt, w.clock.Now()),
	}
	if err := w.alerts.PaymentReceived(ctx, alert); err != nil {
		w.log.Warn("payment alert not sent", zap.String("slug", menu.Slug), zap.Error(err))
	}

	if err := w.repo.MarkNotified(ctx, w.db, job.ID, w.clock.Now()); err != nil {
		return domain.StageNotify, err
	}
	return domain.StageComplete, nil
}

func (w *Worker) notifyOwner(ctx context.Context, menu *menudomain.Menu, d *menudomain.Deliverables) error {
	to := strings.TrimSpace(stringValue(menu.CustomerEmail))
	if to == "" {
		w.log.Warn("paid menu has no customer email; owner email skipped", zap.String("slug", menu.Slug))
		return nil
	}
	return w.email.Send(ctx, email.Message{
		To:       []string{to},
		Subject:  "Your Menus Ready menu is live 🎉",
		HTMLBody: ownerEmailHTML(menu.Restaurant, w.appURL+"/menu/"+menu.Slug),
		Attachments: []email.Attachment{
			{Filename: menu.Slug + "-qr-code.png", ContentType: "image/png", Data: d.QRCodePNG},
			{Filename: menu.Slug + "-menu.txt", ContentType: "text/plain; charset=utf-8", Data: []byte(d.PlainText)},
		},
	})
}

func (w *Worker) fail(ctx context.Context, job *domain.Job, stage domain.Stage, cause error) domain.Outcome {
	ctx = context.WithoutCancel(ctx)
	now := w.clock.Now()
	attempts := job.Attempts + 1
	next := now.Add(w.cfg.Backoff(attempts))

	if err := w.repo.MarkFailed(ctx, w.db, job.ID, truncate(cause.Error()), next, now); err != nil {
		cause = errors.Join(cause, fmt.Errorf("mark failed: %w", err))
	}
	return w.emit(ctx, domain.Outcome{
		JobID:    job.ID,
		Slug:     job.Slug,
		Status:   domain.StatusFailed,
		Stage:    stage,
		Err:      cause,
		Attempts: attempts,
	})
}

func (w *Worker) emit(ctx context.Context, outcome domain.Outcome) domain.Outcome {
	if outcome.Err != nil {
		outcome.Error = outcome.Err.Error()
	}
	for _, sink := range w.sinks {
		sink.Observe(ctx, outcome)
	}
	return outcome
}

func ownerEmailHTML(restaurant, menuURL string) string {
	url := html.EscapeString(menuURL)
	return `<h2>Hi there,</h2>
<p>Your digital menu for <strong>` + html.EscapeString(restaurant) + `</strong> is ready.</p>
<p>Here's everything:</p>
<ul>
<li><strong>Live menu link:</strong> <a href="` + url + `">` + url + `</a></li>
<li><strong>QR code:</strong> attached (print and display)</li>
<li><strong>Text version:</strong> attached (easy to paste)</li>
</ul>
<p>Print the QR code and put it on your tables, front door, or share it on Instagram.</p>
<p>The Menus Ready Team</p>
`
}

func truncate(s string) string {
	if len(s) <= maxErrorLength {
		return s
	}
	return s[:maxErrorLength]
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timeValue(v *time.Time, fallback time.Time) time.Time {
	if v == nil {
		return fallback
	}
	return *v
}
