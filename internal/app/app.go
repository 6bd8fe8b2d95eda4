package app

import (
	"context"
	"net/http"
	"time"

	"janata/internal/ai"
	"janata/internal/api"
	"janata/internal/auth"
	"janata/internal/config"
	"janata/internal/queue"
	"janata/internal/ratelimit"
	"janata/internal/store"
)

type App struct {
	Config config.Config
	Store  *store.Store
	Queue  *queue.Queue
	AI     *ai.Service
	Auth   *auth.Service
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, st.DB()); err != nil {
		return nil, err
	}

	q, err := queue.New(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	var provider ai.Provider
	if cfg.AI.APIKey != "" {
		provider = ai.NewOpenAI(cfg.AI.APIKey, cfg.AI.BaseURL)
	}
	cache := ai.NewReplyCache(cfg.AI.CacheTTL, cfg.AI.CacheCapacity)
	aiSvc := ai.NewService(provider, cache, cfg.AI.Model, cfg.AI.ChatModel)

	return &App{
		Config: cfg,
		Store:  st,
		Queue:  q,
		AI:     aiSvc,
		Auth:   auth.NewService(cfg),
	}, nil
}

func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	return err
}

func (a *App) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.Store.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err := a.Queue.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	handler := api.NewHandler(a.Config, a.Store, a.Auth, a.AI, a.Queue, ratelimit.NewLimiter())
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}
