package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	alertdomain "github.com/smallbiznis/menusready/internal/alert/domain"
	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/deliverable"
	"github.com/smallbiznis/menusready/internal/delivery"
	deliverydomain "github.com/smallbiznis/menusready/internal/delivery/domain"
	"github.com/smallbiznis/menusready/internal/expiry"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	obsmetrics "github.com/smallbiznis/menusready/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/menusready/internal/payment/domain"
	"github.com/smallbiznis/menusready/internal/publication/domain"
	"github.com/smallbiznis/menusready/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Config       config.Config
	GenID        *snowflake.Node
	Clock        clock.Clock
	Log          *zap.Logger
	MenuRepo     menudomain.Repository
	PaymentRepo  paymentdomain.Repository
	DeliveryRepo deliverydomain.Repository
	Gateway      paymentdomain.Gateway
	Timer        *expiry.Timer
	Worker       *delivery.Worker
	Dispatcher   *delivery.Dispatcher `optional:"true"`
	Sweeper      *delivery.Sweeper
	Alerts       alertdomain.Service
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	cfg          config.Config
	genID        *snowflake.Node
	clock        clock.Clock
	log          *zap.Logger
	menuRepo     menudomain.Repository
	paymentRepo  paymentdomain.Repository
	deliveryRepo deliverydomain.Repository
	gateway      paymentdomain.Gateway
	timer        *expiry.Timer
	worker       *delivery.Worker
	dispatcher   *delivery.Dispatcher
	sweeper      *delivery.Sweeper
	alerts       alertdomain.Service
	metrics      *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		cfg:          p.Config,
		genID:        p.GenID,
		clock:        p.Clock,
		log:          p.Log.Named("publication.service"),
		menuRepo:     p.MenuRepo,
		paymentRepo:  p.PaymentRepo,
		deliveryRepo: p.DeliveryRepo,
		gateway:      p.Gateway,
		timer:        p.Timer,
		worker:       p.Worker,
		dispatcher:   p.Dispatcher,
		sweeper:      p.Sweeper,
		alerts:       p.Alerts,
		metrics:      p.Metrics,
	}
}

func (s *Service) CreateCheckoutIntent(ctx context.Context, slug, buyerContact string) (*domain.CheckoutIntent, error) {
	slug = strings.TrimSpace(slug)
	if err := menudomain.ValidateSlug(slug); err != nil {
		return nil, err
	}
	var contact string
	if strings.TrimSpace(buyerContact) != "" {
		normalized, err := normalizeEmail(buyerContact)
		if err != nil {
			return nil, err
		}
		contact = normalized
	}

	menu, err := s.menuRepo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, menudomain.ErrNotFound
	}

	session, err := s.gateway.CreateSession(ctx, paymentdomain.SessionRequest{
		Metadata:       paymentdomain.SessionMetadata{Slug: slug},
		LineItem:       paymentdomain.LineItem{PriceID: s.cfg.Payment.PriceID, Quantity: 1},
		SuccessURL:     s.cfg.AppURL + "/success?restaurant=" + slug + "&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      s.cfg.AppURL + "/preview/" + slug,
		CustomerEmail:  contact,
		IdempotencyKey: ulid.Make().String(),
	})
	if err != nil {
		s.metrics.RecordCheckoutSession(ctx, "failed")
		s.log.Warn("checkout session failed", zap.String("slug", slug), zap.Error(err))
		if errors.Is(err, paymentdomain.ErrInvalidMetadata) || errors.Is(err, paymentdomain.ErrGatewayUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", paymentdomain.ErrGatewayUnavailable, err)
	}

	s.metrics.RecordCheckoutSession(ctx, "created")
	s.log.Info("checkout session created", zap.String("slug", slug), zap.String("session_id", session.ID))
	return &domain.CheckoutIntent{RedirectURL: session.URL, SessionID: session.ID}, nil
}

// HandlePaymentNotification verifies and applies one gateway callback. Once
// the signature verifies, only storage failures produce an error, so the
// gateway retries exactly when retrying can help.
func (s *Service) HandlePaymentNotification(ctx context.Context, rawBody []byte, signatureHeader string) (domain.PaymentAccepted, error) {
	provider := s.gateway.Provider()
	result, err := s.handleNotification(ctx, rawBody, signatureHeader)
	status := string(result.Status)
	if err != nil {
		status = "error"
		if errors.Is(err, paymentdomain.ErrInvalidSignature) {
			status = "invalid_signature"
		}
	}
	s.metrics.RecordPaymentNotification(ctx, provider, status)
	return result, err
}

func (s *Service) handleNotification(ctx context.Context, rawBody []byte, signatureHeader string) (domain.PaymentAccepted, error) {
	n, err := s.gateway.VerifyAndParse(rawBody, signatureHeader)
	switch {
	case err == nil:
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		s.log.Warn("payment notification rejected", zap.Error(err))
		return domain.PaymentAccepted{}, paymentdomain.ErrInvalidSignature
	case errors.Is(err, paymentdomain.ErrEventIgnored):
		return domain.PaymentAccepted{Status: domain.AcceptIgnored}, nil
	default:
		s.log.Warn("verified payment notification unreadable", zap.Error(err))
		return domain.PaymentAccepted{Status: domain.AcceptMalformed}, nil
	}

	slug := n.Metadata.Slug
	email := strings.TrimSpace(n.CustomerEmail)
	log := s.log.With(zap.String("event_id", n.EventID), zap.String("slug", slug))

	if err := n.Metadata.Validate(); err != nil || email == "" {
		log.Error("payment notification missing slug or customer email")
		return domain.PaymentAccepted{Status: domain.AcceptMalformed, EventID: n.EventID}, nil
	}
	if !n.Paid() {
		log.Warn("checkout completed without payment", zap.String("payment_status", n.PaymentStatus))
		return domain.PaymentAccepted{Status: domain.AcceptUnpaid, Slug: slug, EventID: n.EventID}, nil
	}

	now := s.clock.Now()
	record := &paymentdomain.EventRecord{
		ID:              s.genID.Generate().Int64(),
		Provider:        n.Provider,
		ProviderEventID: n.EventID,
		EventType:       n.EventType,
		Slug:            slug,
		Payload:         datatypes.JSON(n.RawPayload),
		ReceivedAt:      now,
	}
	inserted, err := s.paymentRepo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return domain.PaymentAccepted{}, fmt.Errorf("record payment event: %w", err)
	}
	if !inserted {
		existing, err := s.paymentRepo.FindEvent(ctx, s.db, n.Provider, n.EventID)
		if err != nil {
			return domain.PaymentAccepted{}, fmt.Errorf("load payment event: %w", err)
		}
		if existing == nil {
			return domain.PaymentAccepted{}, fmt.Errorf("payment event %s vanished", n.EventID)
		}
		if existing.ProcessedAt != nil {
			log.Info("duplicate payment notification")
			return domain.PaymentAccepted{Status: domain.AcceptDuplicate, Slug: slug, EventID: n.EventID}, nil
		}
		record = existing
	}

	menu, err := s.menuRepo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return domain.PaymentAccepted{}, fmt.Errorf("load menu: %w", err)
	}
	if menu == nil || menu.IsPaid() {
		if err := s.paymentRepo.MarkProcessed(ctx, s.db, record.ID, now); err != nil {
			return domain.PaymentAccepted{}, fmt.Errorf("mark event processed: %w", err)
		}
		if menu == nil {
			log.Error("payment for unknown menu")
			return domain.PaymentAccepted{Status: domain.AcceptUnknownMenu, Slug: slug, EventID: n.EventID}, nil
		}
		log.Info("menu already paid")
		return domain.PaymentAccepted{Status: domain.AcceptDuplicate, Slug: slug, EventID: n.EventID}, nil
	}

	var job *deliverydomain.Job
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := s.menuRepo.CompareAndSetState(ctx, tx, slug,
			[]menudomain.State{menudomain.StateDraft, menudomain.StatePreviewing},
			menudomain.StatePaid,
			menudomain.Transition{PaidAt: &now, CustomerEmail: &email, UpdatedAt: now},
		)
		if err != nil {
			return err
		}
		if moved {
			job, _, err = s.deliveryRepo.Enqueue(ctx, tx, &deliverydomain.Job{
				ID:             s.genID.Generate().Int64(),
				Slug:           slug,
				IdempotencyKey: deliverydomain.PaymentKey(slug, n.EventID),
				Reason:         deliverydomain.ReasonPayment,
				EventID:        n.EventID,
				Status:         deliverydomain.StatusPending,
				NextAttemptAt:  now,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
			if err != nil {
				return err
			}
		}
		return s.paymentRepo.MarkProcessed(ctx, tx, record.ID, now)
	})
	if err != nil {
		return domain.PaymentAccepted{}, fmt.Errorf("apply payment: %w", err)
	}
	if job == nil {
		log.Info("lost paid transition race")
		return domain.PaymentAccepted{Status: domain.AcceptDuplicate, Slug: slug, EventID: n.EventID}, nil
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(job.ID)
	}
	log.Info("menu marked paid", zap.Int64("delivery_job_id", job.ID))
	return domain.PaymentAccepted{
		Status:        domain.AcceptAccepted,
		Slug:          slug,
		EventID:       n.EventID,
		DeliveryJobID: job.ID,
	}, nil
}

func (s *Service) RecordPreviewView(ctx context.Context, slug string) (*domain.Preview, error) {
	slug = strings.TrimSpace(slug)
	if err := menudomain.ValidateSlug(slug); err != nil {
		return nil, err
	}
	menu, err := s.menuRepo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, menudomain.ErrNotFound
	}

	if menu.State == menudomain.StateDraft {
		now := s.clock.Now()
		moved, err := s.menuRepo.CompareAndSetState(ctx, s.db, slug,
			[]menudomain.State{menudomain.StateDraft},
			menudomain.StatePreviewing,
			menudomain.Transition{UpdatedAt: now},
		)
		if err != nil {
			return nil, err
		}
		if moved {
			menu.State = menudomain.StatePreviewing
			menu.UpdatedAt = now
		} else if menu, err = s.menuRepo.FindBySlug(ctx, s.db, slug); err != nil {
			return nil, err
		}
	}

	return &domain.Preview{Menu: menu, Published: menu.Published()}, nil
}

func (s *Service) ViewPreview(ctx context.Context, slug, clientID string) (*domain.PreviewView, error) {
	preview, err := s.RecordPreviewView(ctx, slug)
	if err != nil {
		return nil, err
	}
	view := &domain.PreviewView{Preview: *preview}
	if preview.Published {
		return view, nil
	}

	status, err := s.timer.ForClient(clientID).Status(ctx, preview.Menu.Slug)
	if err != nil {
		return nil, err
	}
	view.Expiry = &status
	s.metrics.RecordPreviewView(ctx, status.Expired)
	return view, nil
}

// PreviewStatus reads the client's expiry without touching the menu state.
func (s *Service) PreviewStatus(ctx context.Context, slug, clientID string) (*domain.PreviewView, error) {
	slug = strings.TrimSpace(slug)
	if err := menudomain.ValidateSlug(slug); err != nil {
		return nil, err
	}
	menu, err := s.menuRepo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, menudomain.ErrNotFound
	}
	view := &domain.PreviewView{Preview: domain.Preview{Published: menu.Published()}}
	if view.Published {
		return view, nil
	}
	status, err := s.timer.ForClient(clientID).Status(ctx, slug)
	if err != nil {
		return nil, err
	}
	view.Expiry = &status
	return view, nil
}

func (s *Service) PublishFree(ctx context.Context, req domain.PublishFreeRequest) (*domain.PublishFreeResult, error) {
	slug := strings.TrimSpace(req.Slug)
	if strings.TrimSpace(req.Email) == "" {
		return nil, domain.ErrEmailRequired
	}
	if err := menudomain.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if !req.ConfirmOwnership {
		return nil, domain.ErrOwnershipNotConfirmed
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	menu, err := s.menuRepo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, menudomain.ErrNotFound
	}

	stamped, err := s.menuRepo.MarkFreePublished(ctx, s.db, slug, email, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if stamped {
		s.log.Info("menu published free", zap.String("slug", slug))
	}
	return &domain.PublishFreeResult{LiveURL: s.cfg.MenuURL(slug)}, nil
}

func (s *Service) VerifySession(ctx context.Context, sessionID string) (*domain.SessionVerification, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrSessionIDRequired
	}
	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrGatewayUnavailable) {
			return nil, err
		}
		s.log.Warn("session verification failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, domain.ErrPaymentIncomplete
	}
	if session.PaymentStatus != paymentdomain.PaymentStatusPaid {
		return nil, domain.ErrPaymentIncomplete
	}
	return &domain.SessionVerification{Valid: true, Restaurant: session.Metadata.Slug}, nil
}

func (s *Service) GetDeliverable(ctx context.Context, slug, kind string) (*domain.Download, error) {
	k, ok := deliverable.ParseKind(strings.ToLower(strings.TrimSpace(kind)))
	if !ok {
		return nil, domain.ErrInvalidKind
	}
	slug = strings.TrimSpace(slug)
	if err := menudomain.ValidateSlug(slug); err != nil {
		return nil, err
	}
	menu, err := s.menuRepo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, menudomain.ErrNotFound
	}
	d, err := s.menuRepo.FindDeliverables(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, menudomain.ErrDeliverablesNotFound
	}

	download := &domain.Download{Filename: domain.DownloadFilename(slug, k)}
	switch k {
	case deliverable.KindQR:
		download.ContentType = "image/png"
		download.Data = d.QRCodePNG
	case deliverable.KindPDF:
		download.ContentType = "application/pdf"
		download.Data = d.PrintableDocument
	default:
		download.ContentType = "text/plain; charset=utf-8"
		download.Data = []byte(d.PlainText)
	}
	return download, nil
}

// SubmitHelpRequest forwards a contact form to the internal channel. It is
// always acknowledged so the form provider never retries.
func (s *Service) SubmitHelpRequest(ctx context.Context, req domain.HelpRequest) error {
	fields := map[string]string{}
	for _, f := range req.Data.Fields {
		label := strings.ToLower(strings.TrimSpace(f.Label))
		value := fieldValue(f.Value)
		if label == "" || value == "" {
			continue
		}
		if _, seen := fields[label]; !seen {
			fields[label] = value
		}
	}
	message := fields["message"]
	if message == "" {
		message = fields["how can we help?"]
	}

	err := s.alerts.HelpRequested(ctx, alertdomain.HelpRequest{
		Name:       fields["name"],
		Restaurant: fields["restaurant"],
		Message:    message,
		At:         s.clock.Now(),
	})
	if err != nil {
		s.log.Error("help request not forwarded", zap.Error(err))
	}
	return nil
}

func (s *Service) CreateMenu(ctx context.Context, req domain.CreateMenuRequest) (*menudomain.Menu, error) {
	restaurant := strings.TrimSpace(req.Restaurant)
	if restaurant == "" {
		return nil, menudomain.ErrInvalidRestaurant
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = menudomain.SlugFor(restaurant)
	}
	if err := menudomain.ValidateSlug(slug); err != nil {
		return nil, err
	}
	content := menudomain.Content{Categories: req.Categories}
	if err := menudomain.ValidateContent(content); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	menu := &menudomain.Menu{
		ID:         s.genID.Generate().Int64(),
		Slug:       slug,
		Restaurant: restaurant,
		Location:   strings.TrimSpace(req.Location),
		Content:    datatypes.NewJSONType(content),
		State:      menudomain.StateDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.menuRepo.Create(ctx, s.db, menu); err != nil {
		return nil, err
	}
	s.log.Info("menu created", zap.String("slug", slug))
	return menu, nil
}

func (s *Service) UpdateContent(ctx context.Context, slug string, content menudomain.Content) (*menudomain.Menu, error) {
	slug = strings.TrimSpace(slug)
	if err := menudomain.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if err := menudomain.ValidateContent(content); err != nil {
		return nil, err
	}
	updated, err := s.menuRepo.UpdateContent(ctx, s.db, slug, content, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, menudomain.ErrNotFound
	}
	return s.menuRepo.FindBySlug(ctx, s.db, slug)
}

// Regenerate rebuilds the deliverables of a paid menu and waits for the
// result. When the payment delivery never reached the owner, that job is
// reopened instead so the owner email and payment alert go out once.
// Otherwise the owner is not emailed again.
func (s *Service) Regenerate(ctx context.Context, slug, actor string) (deliverydomain.Outcome, error) {
	if strings.TrimSpace(actor) == "" {
		return deliverydomain.Outcome{}, domain.ErrActorRequired
	}
	slug = strings.TrimSpace(slug)
	if err := menudomain.ValidateSlug(slug); err != nil {
		return deliverydomain.Outcome{}, err
	}
	menu, err := s.menuRepo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return deliverydomain.Outcome{}, err
	}
	if menu == nil {
		return deliverydomain.Outcome{}, menudomain.ErrNotFound
	}
	if !menu.IsPaid() {
		return deliverydomain.Outcome{}, menudomain.ErrNotPaid
	}

	now := s.clock.Now()
	reopened, err := s.deliveryRepo.ReopenUnnotified(ctx, s.db, slug, now)
	if err != nil {
		return deliverydomain.Outcome{}, err
	}
	if reopened != nil {
		s.log.Info("undelivered payment job reopened", zap.String("slug", slug), zap.String("actor", actor), zap.Int64("job_id", reopened.ID))
		return s.worker.Process(ctx, reopened.ID), nil
	}

	job, _, err := s.deliveryRepo.Enqueue(ctx, s.db, &deliverydomain.Job{
		ID:             s.genID.Generate().Int64(),
		Slug:           slug,
		IdempotencyKey: deliverydomain.RegenerateKey(slug, ulid.Make().String()),
		Reason:         deliverydomain.ReasonRegenerate,
		Status:         deliverydomain.StatusPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return deliverydomain.Outcome{}, err
	}

	s.log.Info("regenerate requested", zap.String("slug", slug), zap.String("actor", actor), zap.Int64("job_id", job.ID))
	return s.worker.Process(ctx, job.ID), nil
}

func (s *Service) ListDeliveries(ctx context.Context, req domain.ListDeliveriesRequest) (*domain.ListDeliveriesResponse, error) {
	before, err := pagination.DecodeBefore(req.PageToken)
	if err != nil {
		return nil, err
	}
	limit := pagination.Limit(req.Limit)
	filter := deliverydomain.ListFilter{
		Slug:     strings.TrimSpace(req.Slug),
		BeforeID: before,
		Limit:    limit + 1,
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := deliverydomain.ParseStatus(strings.ToLower(raw))
		if !ok {
			return nil, deliverydomain.ErrInvalidStatus
		}
		filter.Status = status
	}
	jobs, err := s.deliveryRepo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	jobs, info := pagination.Page(jobs, limit, func(j deliverydomain.Job) int64 { return j.ID })
	return &domain.ListDeliveriesResponse{Jobs: jobs, PageInfo: info}, nil
}

func (s *Service) RetryDeliveries(ctx context.Context) (delivery.SweepResult, error) {
	return s.sweeper.RunOnce(ctx)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", domain.ErrInvalidEmail
	}
	address := strings.ToLower(strings.TrimSpace(addr.Address))
	at := strings.LastIndex(address, "@")
	if at <= 0 || !strings.Contains(address[at+1:], ".") || strings.ContainsAny(address, " \t") {
		return "", domain.ErrInvalidEmail
	}
	return address, nil
}

func fieldValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if s := fieldValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}
