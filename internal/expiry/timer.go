package expiry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyPrefix    = "preview_expiry:v2:"
	legacyPrefix = "preview_expiry_"
	markerPrefix = "preview_expiry_migrated:"

	defaultScope = "global"
)

// Settings supplies hot-reloadable preview knobs.
type Settings interface {
	Get() config.PublicationSettings
}

type Status struct {
	ExpiresAt           time.Time     `json:"expiresAt"`
	Expired             bool          `json:"expired"`
	Remaining           time.Duration `json:"-"`
	RemainingSeconds    int64         `json:"remainingSeconds"`
	PollInterval        time.Duration `json:"-"`
	PollIntervalSeconds int64         `json:"pollIntervalSeconds"`
}

type Params struct {
	fx.In

	Store    Store
	Clock    clock.Clock
	Settings *config.PublicationSettingsHolder
	Log      *zap.Logger
}

// Timer decides preview validity. Expiry is fixed at first view and never
// extended.
type Timer struct {
	store    Store
	clock    clock.Clock
	settings Settings
	log      *zap.Logger
	scope    string
	migrated *sync.Map
}

func NewTimer(p Params) *Timer {
	return New(p.Store, p.Clock, p.Settings, p.Log)
}

func New(store Store, c clock.Clock, settings Settings, log *zap.Logger) *Timer {
	if c == nil {
		c = clock.New()
	}
	if settings == nil {
		settings = config.NewStaticPublicationSettings(config.DefaultPublicationSettings())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Timer{
		store:    store,
		clock:    c,
		settings: settings,
		log:      log.Named("expiry.timer"),
		scope:    defaultScope,
		migrated: &sync.Map{},
	}
}

// ForClient returns a timer whose keys are scoped to one client.
func (t *Timer) ForClient(clientID string) *Timer {
	scoped := *t
	scoped.scope = normalizeScope(clientID)
	return &scoped
}

func (t *Timer) Scope() string { return t.scope }

// GetOrCreateExpiry returns the stored expiry for slug, creating now+ttl on
// first call.
func (t *Timer) GetOrCreateExpiry(ctx context.Context, slug string, ttl time.Duration) (time.Time, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return time.Time{}, ErrInvalidKey
	}
	if ttl <= 0 {
		ttl = t.settings.Get().PreviewTTL
	}
	if err := t.resetLegacyOnce(ctx, slug); err != nil {
		return time.Time{}, err
	}

	now := t.clock.Now()
	stored, created, err := t.store.GetOrCreate(ctx, Key(t.scope, slug), now.Add(ttl))
	if err != nil {
		return time.Time{}, fmt.Errorf("expiry for %s: %w", slug, err)
	}
	if created {
		t.log.Debug("preview expiry created",
			zap.String("slug", slug),
			zap.Time("expires_at", stored),
		)
	}
	return stored, nil
}

// IsExpired is true once now reaches expiry.
func (t *Timer) IsExpired(expiry time.Time) bool {
	return !t.clock.Now().Before(expiry)
}

func (t *Timer) Status(ctx context.Context, slug string) (Status, error) {
	settings := t.settings.Get()
	expiresAt, err := t.GetOrCreateExpiry(ctx, slug, settings.PreviewTTL)
	if err != nil {
		return Status{}, err
	}

	remaining := expiresAt.Sub(t.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	poll := settings.PreviewPollInterval
	if poll <= 0 {
		poll = config.DefaultPublicationSettings().PreviewPollInterval
	}
	return Status{
		ExpiresAt:           expiresAt,
		Expired:             t.IsExpired(expiresAt),
		Remaining:           remaining,
		RemainingSeconds:    int64(remaining / time.Second),
		PollInterval:        poll,
		PollIntervalSeconds: int64(poll / time.Second),
	}, nil
}

// resetLegacyOnce drops the pre-v2 key the first time this scope sees slug.
// Only the caller that creates the marker deletes, so the reset happens once.
func (t *Timer) resetLegacyOnce(ctx context.Context, slug string) error {
	marker := MarkerKey(t.scope, slug)
	if _, done := t.migrated.Load(marker); done {
		return nil
	}

	_, created, err := t.store.GetOrCreate(ctx, marker, t.clock.Now())
	if err != nil {
		return fmt.Errorf("legacy marker for %s: %w", slug, err)
	}
	if created {
		if err := t.store.Delete(ctx, LegacyKey(t.scope, slug)); err != nil {
			return fmt.Errorf("legacy reset for %s: %w", slug, err)
		}
		t.log.Info("legacy preview expiry reset", zap.String("slug", slug))
	}
	t.migrated.Store(marker, struct{}{})
	return nil
}

func Key(scope, slug string) string {
	return keyPrefix + normalizeScope(scope) + ":" + slug
}

func LegacyKey(scope, slug string) string {
	return legacyPrefix + normalizeScope(scope) + "_" + slug
}

func MarkerKey(scope, slug string) string {
	return markerPrefix + normalizeScope(scope) + ":" + slug
}

func normalizeScope(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return defaultScope
	}
	return scope
}
