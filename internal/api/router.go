package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/api/handlers"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/api/middleware"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/config"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/queue"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/store"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Services
	podcastStore := store.NewService(rt.db)
	queueClient := queue.NewClient(rt.cfg.Redis, rt.cfg.Podcast.TaskTimeout)
	statusSvc := queue.NewStatusService(rt.cfg.Redis, rt.redis)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		podcastH := handlers.NewPodcastHandler(podcastStore, queueClient, statusSvc)
		r.Route("/podcasts", func(r chi.Router) {
			r.Post("/", podcastH.Create)
			r.Get("/", podcastH.List)
			r.Get("/task/{taskID}", podcastH.TaskStatus)
			r.Get("/{id}", podcastH.Get)
			r.Delete("/{id}", podcastH.Delete)
			r.Get("/{id}/audio", podcastH.Audio)
		})
	})

	return r
}
