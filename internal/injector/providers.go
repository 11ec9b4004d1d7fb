package injector

import (
	"github.com/zeusync/hoops/internal/config"
	"github.com/zeusync/hoops/internal/core/observability/log"
)

// ProvideLogger builds the process logger at the configured level.
func ProvideLogger(cfg config.Config) log.Log {
	return log.New(cfg.LogLevel())
}
