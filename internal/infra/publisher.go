package infra

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/adapter/publish"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	"github.com/spf13/viper"
)

// InitFailureSink wires the Kafka failure sink using configuration sourced
// from Viper. It returns a nil sink when kafka.enabled is false.
func InitFailureSink(logger applog.AppLogger, v *validator.Validate) (*publish.KafkaFailureSink, error) {
	if logger == nil {
		return nil, fmt.Errorf("infra: logger is required to init failure sink")
	}
	if v == nil {
		v = validator.New()
	}

	cfg := publish.Config{
		Enabled:               viper.GetBool("kafka.enabled"),
		Brokers:               viper.GetStringSlice("kafka.brokers"),
		Topic:                 viper.GetString("kafka.topic"),
		ClientID:              viper.GetString("kafka.client_id"),
		TransactionalID:       viper.GetString("kafka.transactional_id"),
		MaxRetryAttempts:      viper.GetInt("kafka.max_retry_attempts"),
		RetryInitialBackoffMS: viper.GetInt("kafka.retry_initial_backoff_ms"),
		RetryMaxBackoffMS:     viper.GetInt("kafka.retry_max_backoff_ms"),
		RetryJitter:           viper.GetFloat64("kafka.retry_jitter"),
		WriteTimeoutSeconds:   viper.GetInt("kafka.write_timeout_seconds"),
	}
	if !cfg.Enabled {
		logger.Debug("Kafka failure sink disabled")
		return nil, nil
	}

	sink, err := publish.NewKafkaFailureSink(logger, cfg, v)
	if err != nil {
		return nil, fmt.Errorf("infra: failed to init failure sink: %w", err)
	}
	return sink, nil
}
