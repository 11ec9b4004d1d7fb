//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/hoops/internal/config"
	"github.com/zeusync/hoops/internal/core/events/bus"
	"github.com/zeusync/hoops/internal/server"
)

func InitializeServer(cfg config.Config) (*server.Server, error) {
	wire.Build(ProvideLogger, bus.New, server.New)
	return nil, nil
}
