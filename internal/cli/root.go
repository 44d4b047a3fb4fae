package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aradsms/client_directory/internal/client_service/app"
	"github.com/aradsms/client_directory/internal/client_service/domain"
	"github.com/aradsms/client_directory/internal/client_service/repository/postgres"
	"github.com/aradsms/client_directory/internal/platform/config"
	"github.com/aradsms/client_directory/internal/platform/database"
	"github.com/aradsms/client_directory/internal/platform/logger"
)

// Services holds what the commands operate on.
type Services struct {
	Clients *app.Application
	Schema  domain.SchemaManager
	close   func()
}

// Close releases the store handle.
func (s *Services) Close() {
	if s.close != nil {
		s.close()
	}
}

// ServicesFactory builds Services from the loaded configuration.
type ServicesFactory func(ctx context.Context, cfg *config.Config) (*Services, error)

// NewServices is the production factory: a pgx pool, the Postgres repository
// and schema manager, and an Application without an event publisher.
func NewServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	log := logger.New(cfg.LogLevel, cfg.LogFormat).With("service", "clientctl")
	pool, err := database.NewDBPool(ctx, cfg.PostgresDSN, database.PoolConfig{
		MaxConns: cfg.PostgresMaxConns,
		MinConns: cfg.PostgresMinConns,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return NewServicesFrom(
		postgres.NewPgClientRepository(pool, log),
		postgres.NewPgSchemaManager(pool, log),
		log,
		pool.Close,
	), nil
}

// NewServicesFrom assembles Services around an existing repository and schema manager.
func NewServicesFrom(repo domain.ClientRepository, schema domain.SchemaManager, log *slog.Logger, closeFn func()) *Services {
	return &Services{
		Clients: app.NewApplication(repo, nil, log),
		Schema:  schema,
		close:   closeFn,
	}
}

type rootOptions struct {
	cfgFile  string
	cfg      *config.Config
	services ServicesFactory
}

// NewRootCmd builds the clientctl command tree.
func NewRootCmd(factory ServicesFactory) *cobra.Command {
	opts := &rootOptions{services: factory}

	rootCmd := &cobra.Command{
		Use:           "clientctl",
		Short:         "clientctl - client directory administration",
		Long:          "clientctl manages the client directory schema and its client records directly against PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./configs/config.defaults.yaml)")

	rootCmd.AddCommand(newSchemaCmd(opts))
	rootCmd.AddCommand(newClientsCmd(opts))
	return rootCmd
}

// Execute runs clientctl with the production services.
func Execute(ctx context.Context) error {
	return NewRootCmd(NewServices).ExecuteContext(ctx)
}

func (o *rootOptions) initServices(cmd *cobra.Command) (*Services, error) {
	return o.services(cmd.Context(), o.cfg)
}
