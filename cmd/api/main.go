package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quorumlabs/roundtable/backend/internal/config"
	"github.com/quorumlabs/roundtable/backend/internal/handler"
	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/service/ai"
	"github.com/quorumlabs/roundtable/backend/internal/service/chat"
	"github.com/quorumlabs/roundtable/backend/internal/service/meeting"
	"github.com/quorumlabs/roundtable/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	st, err := buildStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}

	var provider *ai.Provider
	if cfg.AI.Enabled() {
		provider, err = ai.NewProvider(ctx, cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("AI provider initialization failed, continuing without AI")
			provider = nil
		} else {
			log.Info().Msg("AI provider initialized")
		}
	} else {
		log.Info().Msg("Ark credentials not configured, AI features disabled")
	}

	// A typed nil provider must not leak into the interface fields.
	var meetingProvider meeting.CompletionProvider
	var chatProvider chat.CompletionProvider
	if provider != nil {
		meetingProvider = provider
		chatProvider = provider
	}

	meetingSvc := meeting.NewService(st, meetingProvider, cfg.Meeting)
	chatSvc := chat.NewService(st, chatProvider)

	router := handler.NewRouter(st, meetingSvc, chatSvc)

	startServer(ctx, cfg.Server, router)
}

func buildStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Enabled() {
		st, err := store.NewGormStore(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("using postgres store")
		return st, nil
	}
	log.Info().Msg("DATABASE_URL not set, using in-memory store with seed personas")
	return store.NewMemoryStore(persona.Seed()), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("roundtable backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
