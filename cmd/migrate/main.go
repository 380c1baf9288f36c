package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/database"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/logger"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/service"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrationsDir string
	steps         int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Database migration tools",
		Long:         `Apply and inspect goose migrations and bootstrap admin users.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&migrationsDir, "dir", "d", "./migrations", "Migrations directory")

	rootCmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newVersionCommand(),
		newCreateCommand(),
		newCreateUserCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: withDB(func(db *sql.DB, _ []string) error {
			if err := goose.Up(db, migrationsDir); err != nil {
				return fmt.Errorf("failed to run up migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		}),
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: withDB(func(db *sql.DB, _ []string) error {
			for i := 0; i < steps; i++ {
				if err := goose.Down(db, migrationsDir); err != nil {
					return fmt.Errorf("failed to run down migration: %w", err)
				}
			}
			fmt.Printf("Rolled back %d migration(s)\n", steps)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: withDB(func(db *sql.DB, _ []string) error {
			if err := goose.Status(db, migrationsDir); err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			return nil
		}),
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: withDB(func(db *sql.DB, _ []string) error {
			if err := goose.Version(db, migrationsDir); err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			return nil
		}),
	}
}

func newCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := goose.Create(nil, migrationsDir, args[0], "sql"); err != nil {
				return fmt.Errorf("failed to create migration: %w", err)
			}
			fmt.Printf("Migration created: %s\n", args[0])
			return nil
		},
	}
}

func newCreateUserCommand() *cobra.Command {
	var (
		email    string
		name     string
		password string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "create-user [username]",
		Short: "Create a back-office user",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			db, err := database.NewDatabase(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			authService := service.NewAuthService(repository.NewUserRepository(db), auth.NewTokenIssuer(&cfg.Auth), log)
			user, err := authService.CreateUser(context.Background(), args[0], email, name, password, domain.UserRole(role))
			if err != nil {
				return err
			}
			fmt.Printf("User created: %s (id %d, role %s)\n", user.Username, user.ID, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	cmd.Flags().StringVarP(&role, "role", "r", string(domain.UserRoleAdmin), "Role (admin or staff)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// withDB opens the postgres connection for goose commands
func withDB(fn func(db *sql.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := sql.Open("postgres", cfg.Database.ConnectionString())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return fmt.Errorf("failed to set dialect: %w", err)
		}

		return fn(db, args)
	}
}
