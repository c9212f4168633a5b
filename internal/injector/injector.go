//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/robosim/internal/config"
)

// InitializeApp wires an App from cfg.
func InitializeApp(cfg *config.Config, opts Options) (*App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideEvents,
		ProvideKeys,
		ProvideSimulation,
		ProvideHub,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
