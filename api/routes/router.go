package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/plexo-core/api/controllers"
	"github.com/angelmondragon/plexo-core/api/middleware"
	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/logger"
)

// NewRouter wires the local bridge. metricsHandler may be nil when metrics
// are disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	sess controllers.Session,
	pingers map[string]controllers.Pinger,
	metricsHandler http.Handler,
) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
		middleware.BodyLimit(cfg.HTTP.MaxBodyBytes),
	)
	if cfg.HTTP.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.HTTP.RequestTimeout))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, sess, pingers))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", controllers.SessionSnapshot(sess))
		r.Post("/session/start", controllers.SessionStart(sess, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.AuthRegister(sess, logg))
			r.Post("/login", controllers.AuthLogin(sess, logg))
			r.Post("/logout", controllers.AuthLogout(sess))
		})

		r.Patch("/profile", controllers.ProfileUpdate(sess, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(sess))
			r.Post("/", controllers.InventorySave(sess, logg))
			r.Patch("/{itemId}", controllers.InventoryUpdate(sess, logg))
			r.Delete("/{itemId}", controllers.InventoryDelete(sess, logg))
			r.Post("/{itemId}/list", controllers.InventoryListOnMarket(sess, logg))
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/", controllers.MarketList(sess, logg))
			r.Post("/{itemId}/buy", controllers.MarketBuy(sess, logg))
			r.Post("/{itemId}/contact", controllers.MarketContact(sess, logg))
		})

		r.Route("/saved", func(r chi.Router) {
			r.Get("/", controllers.SavedList(sess))
			r.Delete("/{savedId}", controllers.SavedRemove(sess, logg))
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", controllers.ChatsList(sess))
			r.Post("/refresh", controllers.ChatsRefresh(sess))
			r.Get("/active", controllers.ActiveThread(sess))
			r.Post("/active/messages", controllers.ActiveThreadSend(sess, logg))
			r.Post("/{chatId}/select", controllers.ChatSelect(sess, logg))
		})
	})

	return r
}
