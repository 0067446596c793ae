package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
)

// Factory creates upstream clients based on configuration
type Factory struct {
	logger *logrus.Logger
	config *config.Config
}

// NewFactory creates a new data source factory
func NewFactory(cfg *config.Config, logger *logrus.Logger) *Factory {
	return &Factory{
		logger: logger,
		config: cfg,
	}
}

// OpenF1 creates the live telemetry client
func (f *Factory) OpenF1() (*OpenF1Client, error) {
	if f.config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	up := f.config.OpenF1
	if up.BaseURL == "" {
		return nil, fmt.Errorf("openf1 base url is required")
	}
	httpClient := NewRateLimitedHTTPClient(HTTPClientConfigFrom(OpenF1SourceName, up), f.logger)
	return NewOpenF1Client(httpClient, up.BaseURL, up.APIToken), nil
}

// Jolpica creates the reference data client
func (f *Factory) Jolpica() (*JolpicaClient, error) {
	if f.config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	up := f.config.Jolpica
	if up.BaseURL == "" {
		return nil, fmt.Errorf("jolpica base url is required")
	}
	httpClient := NewRateLimitedHTTPClient(HTTPClientConfigFrom(JolpicaSourceName, up), f.logger)
	return NewJolpicaClient(httpClient, up.BaseURL), nil
}
