package cli

import (
	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/logging"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/router"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// buildHandlers constructs the engines over store and the HTTP handlers
// that front them.
func buildHandlers(cfg config.Config, store repository.Store, events service.EventPublisher) router.Handlers {
	ids := service.NewIdentityService(store.Actors, store.Tokens, service.IdentityConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	})
	cat := service.NewCatalogService(store)
	books := service.NewBookingService(store, events, logging.NewLogger("booking"))
	revs := service.NewReviewService(store, cfg.ReviewRequiresCompletedBooking)

	return router.Handlers{
		Health:   handler.NewHealthHandler(cfg.StoreDriver),
		Auth:     handler.NewAuthHandler(ids, cat, books, cfg.RequestTimeout),
		Listings: handler.NewListingHandler(cat, cfg.RequestTimeout),
		Bookings: handler.NewBookingHandler(books, cfg.RequestTimeout),
		Reviews:  handler.NewReviewHandler(revs, cfg.RequestTimeout),
	}
}
