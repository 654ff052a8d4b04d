package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stockforge-backend/api/controllers"
	"github.com/angelmondragon/stockforge-backend/api/middleware"
	"github.com/angelmondragon/stockforge-backend/internal/inventory"
	"github.com/angelmondragon/stockforge-backend/internal/production"
	"github.com/angelmondragon/stockforge-backend/internal/recipes"
	"github.com/angelmondragon/stockforge-backend/pkg/config"
	"github.com/angelmondragon/stockforge-backend/pkg/db"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/stockforge-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Idempotent pkgredis.IdempotencyStore
	Registry   *prometheus.Registry
	Inventory  inventory.Service
	Recipes    recipes.Service
	Production production.Service
	Costs      *production.CostService
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB))
	})
	r.Get("/healthz", controllers.HealthLive(cfg))

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ActorContext(logg))
		r.Use(middleware.Idempotency(deps.Idempotent, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/stock", controllers.InventoryAddStock(deps.Inventory, logg))
			r.Post("/stock/remove", controllers.InventoryRemoveStock(deps.Inventory, logg))
			r.Get("/{itemType}/{itemID}", controllers.InventoryGetStock(deps.Inventory, logg))
			r.Get("/{itemType}/{itemID}/transactions", controllers.InventoryTransactions(deps.Inventory, logg))
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Post("/", controllers.RecipeCreate(deps.Recipes, logg))
			r.Get("/", controllers.RecipeList(deps.Recipes, logg))
			r.Get("/{recipeID}", controllers.RecipeGet(deps.Recipes, logg))
			r.Get("/{recipeID}/availability", controllers.RecipeAvailability(deps.Recipes, logg))
			r.Get("/{recipeID}/cost-estimate", controllers.RecipeCostEstimate(deps.Costs, logg))
		})

		r.Route("/production-batches", func(r chi.Router) {
			r.Post("/", controllers.ProductionCreateBatch(deps.Production, logg))
			r.Get("/", controllers.ProductionListBatches(deps.Production, logg))
			r.Get("/{batchID}", controllers.ProductionGetBatch(deps.Production, logg))
			r.Get("/{batchID}/costs", controllers.ProductionBatchCosts(deps.Costs, logg))
			r.Post("/{batchID}/start", controllers.ProductionStart(deps.Production, logg))
			r.Post("/{batchID}/complete", controllers.ProductionComplete(deps.Production, logg))
			r.Post("/{batchID}/cancel", controllers.ProductionCancel(deps.Production, logg))
		})
	})

	return r
}
