package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"aes128-service/config"
	"aes128-service/internal/middleware"
	"aes128-service/pkg/httputil"
)

// NewRouter はルーターを生成する。
func NewRouter(kh *KeyHandler, ch *CipherHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// ルート定義
	r.Route("/v1/keyrings/{keyring}", func(r chi.Router) {
		r.Post("/keys", kh.CreateKey)
		r.Get("/keys", kh.ListKeys)
		r.Post("/keys/rotate", kh.RotateKey)
		r.Delete("/keys/{version}", kh.RevokeKey)
		r.Post("/encrypt", kh.Encrypt)
	})

	r.Route("/v1/cipher", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Post("/encrypt", ch.Encrypt)
		r.Post("/expand", ch.ExpandKey)
		r.Post("/trace", ch.Trace)
	})

	r.Get("/v1/selftest", ch.LatestSelfTest)
	r.Post("/v1/selftest", ch.RunSelfTest)

	return otelhttp.NewHandler(r, cfg.OtelServiceName)
}
