package container

import (
	"fmt"

	"storefront/catalog/internal/config"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the level and format from the logging section.
func ConfigureLogging(cfg config.LoggingConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid logging.format %q", cfg.Format)
	}
	return nil
}
