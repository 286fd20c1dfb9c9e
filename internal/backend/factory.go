package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/config"
	"finanzas/internal/source/api"
	"finanzas/internal/source/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	token, err := appConfig.Token()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Type:          backendType,
		BaseURL:       appConfig.APIBaseURL,
		Token:         token,
		Timeout:       appConfig.APITimeout,
		MaxRetries:    appConfig.APIMaxRetries,
		DataDirectory: appConfig.DataDir,
	}, nil
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*BackendResult, error) {
	switch config.Type {
	case APIBackend:
		return f.createAPIBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createAPIBackend(config Config) (*BackendResult, error) {
	client, err := api.New(config.BaseURL, config.Token,
		api.WithTimeout(config.Timeout),
		api.WithMaxRetries(config.MaxRetries),
		api.WithLogger(f.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize finance API client: %w", err)
	}
	if config.Token == "" {
		f.logger.Warn("No API token configured; requests will fail until one is set")
	}

	f.logger.Info("Initialized API backend", "base_url", config.BaseURL, "max_retries", config.MaxRetries)
	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{Backend: store}, nil
}
