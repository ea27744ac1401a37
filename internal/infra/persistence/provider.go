// Package persistence selects the Account Store backend from configuration.
package persistence

import (
	"log/slog"

	"bidhub/config"
	"bidhub/internal/domain/repository"
	"bidhub/internal/infra/persistence/memory"
	mongostore "bidhub/internal/infra/persistence/mongo"
	"bidhub/internal/infra/persistence/postgres"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// StoreParams holds dependencies for the Account Store, injected by Fx.
type StoreParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewAccountRepository opens the configured backend and returns its repository.
// Only the selected backend is connected.
func NewAccountRepository(params StoreParams) (repository.AccountRepository, error) {
	driver := params.Config.Store.Driver
	logger := params.Logger.With(slog.String("driver", driver))

	switch driver {
	case config.StoreDriverPostgres:
		db, err := postgres.New(postgres.Params{Lifecycle: params.Lc, Config: params.Config, Logger: params.Logger})
		if err != nil {
			return nil, err
		}
		logger.Info("Using PostgreSQL account store")

		return postgres.NewAccountRepository(db), nil

	case config.StoreDriverMongo:
		db, err := mongostore.New(mongostore.Params{Lifecycle: params.Lc, Config: params.Config, Logger: params.Logger})
		if err != nil {
			return nil, err
		}
		logger.Info("Using MongoDB account store")

		return mongostore.NewAccountRepository(db), nil

	case config.StoreDriverMemory:
		if params.Config.IsProduction() {
			return nil, errors.New("memory account store is not allowed in production")
		}
		logger.Warn("Using in-memory account store, data is lost on restart")

		return memory.NewAccountRepository(), nil

	default:
		return nil, errors.Errorf("unknown store driver: %s", driver)
	}
}

// Module provides the persistence FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewAccountRepository),
)
