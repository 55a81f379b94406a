package cli

import (
	"fmt"

	"github.com/spf13/afero"

	coreapp "ssd/internal/core/app"
	"ssd/internal/core/config"
	"ssd/internal/core/ports"
)

type serviceFactory interface {
	New(cfg *config.Config, fs afero.Fs, opts ...coreapp.Option) (ports.FrontendService, error)
}

type coreServiceFactory struct{}

func (coreServiceFactory) New(cfg *config.Config, fs afero.Fs, opts ...coreapp.Option) (ports.FrontendService, error) {
	app, err := coreapp.New(cfg, fs, opts...)
	if err != nil {
		return nil, err
	}
	return app.FrontendService(), nil
}

func initializeService(cfg *config.Config, fs afero.Fs, factory serviceFactory, opts ...coreapp.Option) (ports.FrontendService, error) {
	if factory == nil {
		return nil, fmt.Errorf("service factory is required")
	}
	return factory.New(cfg, fs, opts...)
}
