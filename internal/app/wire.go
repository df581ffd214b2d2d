//go:build wireinject

package app

import (
	"tradedash/internal/config"

	"github.com/google/wire"
)

func buildAppWithWire(cfg *config.Config, path ConfigPath) (*App, func(), error) {
	wire.Build(providerSet)
	return nil, nil, nil
}
