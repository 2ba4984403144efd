package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PublicationSettings are the product knobs that may change without a deploy.
type PublicationSettings struct {
	PreviewTTL          time.Duration `mapstructure:"previewTTL"`
	PreviewPollInterval time.Duration `mapstructure:"previewPollInterval"`
	AmountLabel         string        `mapstructure:"amountLabel"`
	AlertRecipients     []string      `mapstructure:"alertRecipients"`
}

func DefaultPublicationSettings() PublicationSettings {
	return PublicationSettings{
		PreviewTTL:          24 * time.Hour,
		PreviewPollInterval: 10 * time.Second,
		AmountLabel:         "$99",
	}
}

type PublicationSettingsHolder struct {
	current atomic.Value // holds PublicationSettings
}

// NewStaticPublicationSettings returns a holder that never reloads.
func NewStaticPublicationSettings(settings PublicationSettings) *PublicationSettingsHolder {
	holder := &PublicationSettingsHolder{}
	holder.current.Store(settings)
	return holder
}

func NewPublicationSettingsHolder(cfg Config, log *zap.Logger) (*PublicationSettingsHolder, error) {
	log = log.Named("config.publication")
	v := viper.New()

	if strings.TrimSpace(cfg.SettingsPath) != "" {
		v.SetConfigFile(cfg.SettingsPath)
	} else {
		v.SetConfigName("publication")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/menusready")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MENUSREADY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPublicationSettings()
	v.SetDefault("publication.previewTTL", defaults.PreviewTTL)
	v.SetDefault("publication.previewPollInterval", defaults.PreviewPollInterval)
	v.SetDefault("publication.amountLabel", defaults.AmountLabel)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	settings, err := decodePublicationSettings(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPublicationSettings(settings)
	if !fileLoaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePublicationSettings(v)
		if err != nil {
			log.Warn("invalid publication settings ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("publication settings reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *PublicationSettingsHolder) Get() PublicationSettings {
	return h.current.Load().(PublicationSettings)
}

func decodePublicationSettings(v *viper.Viper) (PublicationSettings, error) {
	var settings PublicationSettings
	if err := v.UnmarshalKey("publication", &settings); err != nil {
		return PublicationSettings{}, err
	}
	return settings, validatePublicationSettings(settings)
}

func validatePublicationSettings(s PublicationSettings) error {
	if s.PreviewTTL <= 0 {
		return errors.New("publication.previewTTL must be positive")
	}
	if s.PreviewPollInterval <= 0 {
		return errors.New("publication.previewPollInterval must be positive")
	}
	return nil
}
