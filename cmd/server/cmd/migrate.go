package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/anonto42/gatherly/backend/internal/repositories"
	"github.com/anonto42/gatherly/backend/pkg/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Migrate the relational schema (users, friend_edges, notifications) and,
when MONGO_URI is set, create the event collection indexes.

serve runs the same migration on start up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger := config.NewLogger(cfg.Logging)

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		db, err := config.InitDB(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return migrate(ctx, db, cfg, logger)
	},
}

func migrate(ctx context.Context, db *config.DB, cfg *config.Config, logger zerolog.Logger) error {
	if err := db.SQL.WithContext(ctx).AutoMigrate(&models.User{}, &models.FriendEdge{}, &models.Notification{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info().Msg("relational schema migrated")

	if db.Mongo != nil {
		events := repositories.NewMongoEventRepository(db.Mongo.Database(cfg.MongoDatabase))
		if err := events.EnsureIndexes(ctx); err != nil {
			return err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("event indexes ensured")
	}
	return nil
}
