// Package main initializes and starts the GophNotes HTTPS server,
// setting up configuration, logging, storage, services, handlers, and TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/GophNotes/internal/auth"
	"github.com/atinyakov/GophNotes/internal/certgen"
	"github.com/atinyakov/GophNotes/internal/config"
	"github.com/atinyakov/GophNotes/internal/db"
	"github.com/atinyakov/GophNotes/internal/logger"
	"github.com/atinyakov/GophNotes/internal/middleware"
	"github.com/atinyakov/GophNotes/internal/repository"
	"github.com/atinyakov/GophNotes/internal/repository/memory"
	"github.com/atinyakov/GophNotes/internal/server/handler/http"
	"github.com/atinyakov/GophNotes/internal/service"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

// stores bundles the repositories selected by configuration.
type stores struct {
	notes service.NoteRepository
	users service.AuthRepository
	db    *sql.DB
}

// openStores uses PostgreSQL when a DSN is configured and in-memory maps
// otherwise.
func openStores(ctx context.Context, options *config.Options, log *zap.Logger) (*stores, error) {
	if options.DatabaseDSN == "" {
		log.Warn("no database configured, notes are kept in memory")
		return &stores{notes: memory.NewNoteRepository(), users: memory.NewUserRepository()}, nil
	}

	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	db.StartExpiredNoteCleaner(ctx, postgresDB, options.CleanupInterval, options.ExpiredRetention, log)

	return &stores{
		notes: repository.NewPostgresNoteRepository(postgresDB),
		users: repository.NewPostgresAuthRepository(postgresDB),
		db:    postgresDB,
	}, nil
}

// newHandler wires services, handlers and middleware into the API router.
func newHandler(options *config.Options, st *stores, ca http.CertificateIssuer, log *zap.Logger) (nethttp.Handler, error) {
	var (
		issuer service.TokenIssuer
		parser middleware.TokenParser
	)
	if options.JWTSecret != "" {
		tokens, err := auth.NewTokenManager(options.JWTSecret, options.TokenTTL)
		if err != nil {
			return nil, err
		}
		issuer, parser = tokens, tokens
	}

	authHandler := &http.AuthHandler{
		AuthService:  service.NewAuthService(st.users, issuer),
		Certificates: ca,
	}
	noteHandler := &http.NoteHandler{
		NoteService: service.NewNoteService(st.notes, options.PublicURLBase, log),
		Logger:      log,
	}

	return http.NewRouter(authHandler, noteHandler, log, http.RouterOptions{
		AllowedOrigins: options.AllowedOrigins(),
		Tokens:         parser,
		PublicLimiter:  middleware.NewRateLimiter(options.PublicRPS, options.PublicBurst, log),
	}), nil
}

// tlsConfig loads the server pair and verifies client certificates against
// the CA when they are presented.
func tlsConfig(certDir string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(
		filepath.Join(certDir, certgen.ServerCertFile),
		filepath.Join(certDir, certgen.ServerKeyFile),
	)
	if err != nil {
		return nil, fmt.Errorf("load server TLS cert/key: %w", err)
	}

	caCert, err := os.ReadFile(filepath.Join(certDir, certgen.CACertFile))
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}
	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		return nil, errors.New("append CA cert to pool")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.VerifyClientCertIfGiven,
		ClientCAs:    caCertPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func run(ctx context.Context, options *config.Options, log *zap.Logger) (err error) {
	st, err := openStores(ctx, options, log)
	if err != nil {
		return fmt.Errorf("cannot init storage: %w", err)
	}
	if st.db != nil {
		defer func() { err = multierr.Append(err, st.db.Close()) }()
	}

	ca, err := certgen.LoadAuthority(options.CertDir)
	if err != nil {
		return fmt.Errorf("load CA: %w", err)
	}
	tlsCfg, err := tlsConfig(options.CertDir)
	if err != nil {
		return err
	}
	router, err := newHandler(options, st, ca, log)
	if err != nil {
		return err
	}

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTPS server", zap.String("addr", options.Port))
		serveErr <- server.ListenAndServeTLS("", "")
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("HTTPS server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}
