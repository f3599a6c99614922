// Package api wires the HTTP surface: routing, middleware, and the
// handlers over the document and chat services.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/maintdesk/backend/internal/api/handlers"
	"github.com/maintdesk/backend/internal/api/middleware"
	"github.com/maintdesk/backend/internal/auth"
	"github.com/maintdesk/backend/internal/cache"
	"github.com/maintdesk/backend/internal/chat"
	"github.com/maintdesk/backend/internal/config"
	"github.com/maintdesk/backend/internal/document"
	"github.com/maintdesk/backend/internal/embedding"
	"github.com/maintdesk/backend/internal/llm"
	"github.com/maintdesk/backend/internal/queue"
	"github.com/maintdesk/backend/internal/rag"
	"github.com/maintdesk/backend/internal/store"
)

type Router struct {
	mux   *chi.Mux
	store store.Store
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW llm.Gateway
}

func NewRouter(st store.Store, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		store: st,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.store, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	var c *cache.Cache
	if rt.redis != nil {
		c = cache.New(rt.redis)
	}

	docSvc := document.NewService(rt.store)
	chatSvc := chat.NewService(rt.store)
	queueClient := queue.NewClient(rt.cfg.Redis)
	batcher := embedding.NewBatcher(rt.llmGW, c, rt.cfg.RAG.EmbedBatchSize)
	engine := rag.NewEngine(rt.store, batcher, rt.llmGW, rt.cfg.RAG)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		docH := handlers.NewDocumentHandler(docSvc, queueClient, c)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Get("/{id}/status", docH.Status)
			r.Post("/{id}/process", docH.Process)
		})

		chatH := handlers.NewChatHandler(engine, chatSvc)
		r.Route("/chat", func(r chi.Router) {
			r.Post("/query", chatH.Query)
			r.Get("/history", chatH.History)
			r.Delete("/history", chatH.ClearHistory)
		})

		searchH := handlers.NewSearchHandler(engine)
		r.Post("/search", searchH.Search)

		statsH := handlers.NewStatsHandler(docSvc)
		r.Get("/stats", statsH.Stats)
	})

	return r
}
