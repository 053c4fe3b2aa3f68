package infra

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/adapter/publish"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/usecase"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	"github.com/spf13/viper"
)

// LoadWatcherConfig reads the watcher.* keys.
func LoadWatcherConfig() usecase.Config {
	return usecase.Config{
		Enabled:              viper.GetBool("watcher.enabled"),
		IntervalMillis:       viper.GetInt("watcher.interval_millis"),
		Debug:                viper.GetBool("watcher.debug"),
		InvocationTimeoutMS:  viper.GetInt("watcher.invocation_timeout_ms"),
		HonorFunctionTimeout: viper.GetBool("watcher.honor_function_timeout"),
	}
}

// InitRegistryBuilder wires the invoker and the registry builder around resolver.
func InitRegistryBuilder(log applog.AppLogger, resolver port.HandlerResolver, svc *entity.ServiceDefinition) *usecase.RegistryBuilder {
	cfg := LoadWatcherConfig()
	region := viper.GetString("aws.region")
	if region == "" {
		region = svc.Region
	}
	inv := usecase.NewInvoker(log, resolver,
		usecase.WithInvocationTimeout(cfg.InvocationTimeout()),
		usecase.WithFunctionTimeouts(cfg.HonorFunctionTimeout),
		usecase.WithRegion(region),
	)
	return usecase.NewRegistryBuilder(log, resolver, inv)
}

// InitWatcher wires the stream watcher. sink may be nil.
func InitWatcher(log applog.AppLogger, v *validator.Validate, provider port.StreamProvider, resolver port.HandlerResolver, svc *entity.ServiceDefinition, sink *publish.KafkaFailureSink) (*usecase.StreamWatcher, error) {
	cfg := LoadWatcherConfig()
	var failureSink port.FailureSink
	if sink != nil {
		failureSink = sink
	}
	w, err := usecase.NewStreamWatcher(log, &cfg, v, provider, InitRegistryBuilder(log, resolver, svc), svc, failureSink)
	if err != nil {
		return nil, fmt.Errorf("infra: failed to init stream watcher: %w", err)
	}
	return w, nil
}
