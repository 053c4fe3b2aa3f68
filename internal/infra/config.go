package infra

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WATCHER_WATCHER_INTERVAL_MILLIS.
const EnvPrefix = "WATCHER"

// InitConfig loads the YAML config. An explicit path must exist; without one
// config.yml is searched in ./configs and ../configs and may be absent, in
// which case defaults and environment variables apply.
func InitConfig(path string) error {
	setDefaults()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("infra: failed to read config file %q: %w", path, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("infra: failed to read config file: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("service.name", "offline-stream-watcher")
	viper.SetDefault("service.instance", "local")
	viper.SetDefault("service.file", "serverless.yml")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("watcher.enabled", true)
	viper.SetDefault("watcher.interval_millis", 1000)
	viper.SetDefault("watcher.debug", false)
	viper.SetDefault("watcher.invocation_timeout_ms", 0)
	viper.SetDefault("watcher.honor_function_timeout", false)

	viper.SetDefault("functions.shell", "/bin/sh")

	viper.SetDefault("provider.type", "kinesis")
	viper.SetDefault("aws.port", 4568)
	viper.SetDefault("aws.max_retries", 0)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.dial_timeout_seconds", 5)
	viper.SetDefault("redis.key_prefix", "kinesis")

	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.client_id", "offline-stream-watcher")
	viper.SetDefault("kafka.topic", "stream-watcher.failed-batches")

	viper.SetDefault("http.enabled", false)
	viper.SetDefault("http.addr", "127.0.0.1:8080")

	viper.SetDefault("pprof.enabled", false)
	viper.SetDefault("pprof.addr", "127.0.0.1:6060")
}
