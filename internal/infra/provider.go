package infra

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/adapter/provider"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	"github.com/spf13/viper"
)

// StreamBackend is a provider the watcher can poll and the put command can
// write to.
type StreamBackend interface {
	port.StreamProvider
	port.RecordWriter
	Close() error
}

// InitProvider builds the stream backend selected by provider.type.
func InitProvider(log applog.AppLogger, v *validator.Validate) (StreamBackend, error) {
	if v == nil {
		v = validator.New()
	}
	switch t := viper.GetString("provider.type"); t {
	case provider.TypeKinesis:
		p, err := provider.NewKinesisProvider(log, v, loadKinesisConfig())
		if err != nil {
			return nil, fmt.Errorf("infra: failed to init kinesis provider: %w", err)
		}
		return p, nil
	case provider.TypeRedis:
		p, err := provider.NewRedisStreamProvider(log, v, loadRedisConfig())
		if err != nil {
			return nil, fmt.Errorf("infra: failed to init redis provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("infra: unknown provider type %q", t)
	}
}

func loadKinesisConfig() provider.KinesisConfig {
	return provider.KinesisConfig{
		Endpoint:        viper.GetString("aws.endpoint"),
		Host:            viper.GetString("aws.host"),
		Port:            viper.GetInt("aws.port"),
		Endpoints:       viper.GetStringMapString("aws.endpoints"),
		EndpointFile:    viper.GetString("aws.endpoint_file"),
		Region:          viper.GetString("aws.region"),
		AccessKeyID:     viper.GetString("aws.access_key_id"),
		SecretAccessKey: viper.GetString("aws.secret_access_key"),
		MaxRetries:      viper.GetInt("aws.max_retries"),
	}
}

func loadRedisConfig() provider.RedisConfig {
	return provider.RedisConfig{
		Host:               viper.GetString("redis.host"),
		Port:               viper.GetString("redis.port"),
		Password:           viper.GetString("redis.password"),
		DB:                 viper.GetInt("redis.db"),
		UseTLS:             viper.GetBool("redis.use_tls"),
		PoolSize:           viper.GetInt("redis.pool_size"),
		MaxRetries:         viper.GetInt("redis.max_retries"),
		DialTimeoutSeconds: viper.GetInt("redis.dial_timeout_seconds"),
		KeyPrefix:          viper.GetString("redis.key_prefix"),
	}
}
