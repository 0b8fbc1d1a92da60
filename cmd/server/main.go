package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"yamdb/internal/config"
	"yamdb/internal/logging"
	"yamdb/internal/mail"
	"yamdb/internal/user"
	"yamdb/pkg/database"
)

var (
	httpAddr string
	grpcAddr string
	dbPath   string
)

var rootCmd = &cobra.Command{
	Use:           "yamdb",
	Short:         "YaMDb reviews API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC servers",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.db.Close()
		env.log.Info().Str("db", env.cfg.DBPath).Msg("schema is up to date")
		return nil
	},
}

var (
	suUsername string
	suEmail    string
	suPassword string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a superuser or promote an existing user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.db.Close()

		users := user.NewService(env.db, env.mailer, env.userConfig())
		u, err := users.CreateSuperuser(cmd.Context(), suUsername, suEmail, suPassword)
		if err != nil {
			return err
		}
		env.log.Info().Str("username", u.Username).Str("email", u.Email).Msg("superuser ready")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	rootCmd.PersistentFlags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides GRPC_ADDR)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DB_PATH)")

	createSuperuserCmd.Flags().StringVar(&suUsername, "username", "", "username")
	createSuperuserCmd.Flags().StringVar(&suEmail, "email", "", "email address")
	createSuperuserCmd.Flags().StringVar(&suPassword, "password", "", "password (optional)")
	_ = createSuperuserCmd.MarkFlagRequired("username")
	_ = createSuperuserCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(serveCmd, migrateCmd, createSuperuserCmd)
}

// env is what every command needs: config, logger, migrated DB and mailer.
type env struct {
	cfg    config.Config
	log    zerolog.Logger
	db     *sql.DB
	mailer mail.Sender
}

func (e *env) userConfig() user.Config {
	return user.Config{
		JWTSecret: []byte(e.cfg.JWTSecret),
		TokenTTL:  e.cfg.AccessTokenTTL,
		MailFrom:  e.cfg.MailFrom,
	}
}

// setup reads flags from cmd, which sees the root's persistent flags.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if cmd.Flags().Changed("grpc-addr") {
		cfg.GRPCAddr = grpcAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	if cfg.InsecureSecret() {
		log.Warn().Msg("JWT_SECRET is not set; using the development secret")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	return &env{cfg: cfg, log: log, db: db, mailer: newMailer(cfg, log)}, nil
}

func newMailer(cfg config.Config, log zerolog.Logger) mail.Sender {
	switch cfg.MailBackend {
	case "smtp":
		return mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	case "memory":
		return &mail.Outbox{}
	}
	return mail.NewConsoleSender(log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
