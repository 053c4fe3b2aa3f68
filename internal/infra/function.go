package infra

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/adapter/function"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	"github.com/spf13/viper"
)

// InitServiceDefinition parses the service file named by service.file.
func InitServiceDefinition(log applog.AppLogger) (*entity.ServiceDefinition, error) {
	path := viper.GetString("service.file")
	svc, err := function.LoadServiceDefinition(path)
	if err != nil {
		return nil, fmt.Errorf("infra: failed to load service definition: %w", err)
	}
	log.Debug("Loaded service definition", "file", path, "service", svc.Service, "functions", len(svc.Functions))
	return svc, nil
}

// InitResolver builds the process resolver that runs each function's handler
// command.
func InitResolver(log applog.AppLogger, v *validator.Validate, svc *entity.ServiceDefinition) (*function.ProcessResolver, error) {
	if v == nil {
		v = validator.New()
	}
	cfg := function.ProcessConfig{
		Shell:        viper.GetString("functions.shell"),
		BuildCommand: viper.GetString("functions.build_command"),
		WorkDir:      viper.GetString("functions.work_dir"),
		Region:       viper.GetString("aws.region"),
	}
	r, err := function.NewProcessResolver(log, v, svc, cfg)
	if err != nil {
		return nil, fmt.Errorf("infra: failed to init handler resolver: %w", err)
	}
	return r, nil
}
