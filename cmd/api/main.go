package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/diag-leads/internal/config"
	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/geo"
	"github.com/xavierca1/diag-leads/internal/infra/database"
	"github.com/xavierca1/diag-leads/internal/infra/http/handlers"
	"github.com/xavierca1/diag-leads/internal/infra/integration/kommo"
	"github.com/xavierca1/diag-leads/internal/infra/mail"
	"github.com/xavierca1/diag-leads/internal/infra/memory"
	"github.com/xavierca1/diag-leads/internal/infra/notify"
	"github.com/xavierca1/diag-leads/internal/infra/queue"
	"github.com/xavierca1/diag-leads/internal/infra/realtime"
	"github.com/xavierca1/diag-leads/internal/infra/worker"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro ao carregar configuração: %v\n", err)
		os.Exit(1)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "erro ao iniciar logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zap.L().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		zap.L().Error("api encerrada com erro", zap.Error(err))
		os.Exit(1)
	}
	zap.L().Info("api encerrada")
}

type storage struct {
	leads entity.LeadRepositoryInterface
	users entity.UserDirectoryInterface
	db    handlers.Pinger // nil no modo memory
	close func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	logger := zap.L()

	if cfg.Store.Driver == "postgres" {
		pool, err := database.NewPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("armazenamento postgres pronto")
		return &storage{
			leads: database.NewLeadRepository(pool),
			users: database.NewUserRepository(pool),
			db:    pool,
			close: pool.Close,
		}, nil
	}

	users := memory.NewUserDirectory()
	for _, u := range cfg.Users {
		users.Add(u.Entity())
	}
	if len(cfg.Users) == 0 {
		logger.Warn("modo memory sem usuários configurados: atribuições vão falhar")
	}
	logger.Info("armazenamento em memória (dados somem ao reiniciar)")
	return &storage{
		leads: memory.NewLeadStore(),
		users: users,
		close: func() {},
	}, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := zap.L()

	// 1. Geo
	resolver, err := geo.Open(cfg.Geo.TablesPath, cfg.Geo.HomeCallingCode)
	if err != nil {
		return err
	}

	// 2. Armazenamento
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// 3. Notificações: websocket sempre; fila, e-mail e CRM quando configurados
	hub := realtime.NewHub(cfg.Server.AllowedOrigins)
	fanout := notify.NewFanout()
	fanout.Add("realtime", hub)

	var rabbit *queue.RabbitMQ
	if cfg.RabbitMQ.URL != "" {
		rabbit, err = queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		fanout.Add("rabbitmq", queue.NewEventProducer(rabbit.Ch))
	}

	if cfg.Mail.Host != "" {
		fanout.Add("mail", mail.NewAssignmentMailer(mail.EmailSender{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, st.users))
	}

	if cfg.CRM.KommoToken != "" {
		fanout.Add("kommo", kommo.NewClient(cfg.CRM.KommoURL, cfg.CRM.KommoToken, cfg.CRM.KommoStatusID))
	}

	if rabbit == nil && cfg.Mail.Host == "" {
		fanout.Add("log", notify.NewLogNotifier())
	}

	// 4. UseCases
	capture := usecase.NewCaptureLeadUseCase(st.leads, resolver, fanout, cfg.Geo.DefaultRegion)
	pipeline := usecase.NewLeadPipeline(st.leads, st.users, fanout)

	// 5. Handlers
	var rabbitState handlers.ConnectionState
	if rabbit != nil {
		rabbitState = rabbit
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Leads:          handlers.NewLeadHandler(capture, pipeline, resolver, cfg.Intake.RateLimitPerMinute),
		Geo:            handlers.NewGeoHandler(resolver, cfg.Geo.DefaultRegion),
		Health:         handlers.NewHealthHandler(st.db, rabbitState, cfg.Store.Driver),
		Board:          hub,
		ScoringSecret:  cfg.Scoring.WebhookSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
		Logger:         logger.With(zap.String("component", "http")),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Servidor + workers com desligamento conjunto
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("servidor de leads rodando", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "http server")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		stale := worker.NewStaleLeadWorker(st.leads, fanout, cfg.Worker.StaleAfter(), cfg.Worker.TickInterval())
		return stale.Start(gctx)
	})

	if rabbit != nil {
		g.Go(func() error {
			return queue.NewScoringWorker(rabbit.Ch, pipeline).Start(gctx)
		})
	}

	return g.Wait()
}
