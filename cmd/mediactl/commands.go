package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/repository"
	"github.com/homereel/media-library/internal/service"
	"github.com/homereel/media-library/pkg/config"
	"github.com/homereel/media-library/pkg/database"
	"github.com/homereel/media-library/pkg/logger"
	"github.com/homereel/media-library/pkg/storage"
)

type configLoader func() (*config.Config, error)

func newRootCmd(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "mediactl",
		Short:         "Operate the media library",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(load),
		newSeedSourcesCmd(load),
		newIssueTokenCmd(load),
		newSweepTempCmd(load),
	)
	return root
}

func loadWithLogger(load configLoader) (*config.Config, *zap.Logger, error) {
	cfg, err := load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate {up|down|version|force} [version]",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{database.MigrateUp, database.MigrateDown, database.MigrateVersion, database.MigrateForce},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadWithLogger(load)
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck
			return database.Migrate(cfg.Database, logr, args[0], args[1:]...)
		},
	}
}

func newSeedSourcesCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-sources",
		Short: "Ensure a media_sources row exists for every source kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logr, err := loadWithLogger(load)
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			catalog := service.NewSourceCatalog(repository.NewSourceRepository(db), service.SourceCatalogConfig{}, logr)
			sources, err := catalog.Seed(cmd.Context())
			if err != nil {
				return err
			}
			for _, src := range sources {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", src.Kind, src.ID, src.Name)
			}
			return nil
		},
	}
}

func newIssueTokenCmd(load configLoader) *cobra.Command {
	var (
		role     string
		email    string
		fullName string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token <user-id>",
		Short: "Mint an access token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			auth := service.NewAuthService(nil, nil, service.AuthConfig{
				AccessTokenSecret: cfg.JWT.Secret,
				AccessTokenExpiry: cfg.JWT.Expiration,
			})
			token, expiresAt, err := auth.IssueToken(service.IssueTokenRequest{
				UserID:   args[0],
				Role:     models.UserRole(role),
				Email:    email,
				FullName: fullName,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "ADMIN, USER or GUEST")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&fullName, "name", "", "full name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_EXPIRATION)")
	return cmd
}

func newSweepTempCmd(load configLoader) *cobra.Command {
	var maxAge time.Duration
	cmd := &cobra.Command{
		Use:   "sweep-temp",
		Short: "Remove abandoned upload temp files from local storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Media.StorageDriver == config.StorageDriverMinIO {
				return fmt.Errorf("sweep-temp only applies to the %s storage driver", config.StorageDriverLocal)
			}
			if maxAge <= 0 {
				maxAge = cfg.Media.TempMaxAge
			}
			local, err := storage.NewLocalStorage(cfg.Media.StorageDir)
			if err != nil {
				return err
			}
			removed, err := local.SweepTemp(maxAge)
			for _, path := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "minimum age of temp files to remove (defaults to MEDIA_TEMP_MAX_AGE)")
	return cmd
}
