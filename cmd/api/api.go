package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"campusmart/docs" //this is required to generate swagger docs
	"campusmart/internal/auth"
	"campusmart/internal/domain/storage"
	"campusmart/internal/domain/transactions"
	"campusmart/internal/notifications"
	"campusmart/internal/ratelimiter"
	"campusmart/internal/recommend"
	"campusmart/internal/reviewsummary"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type magicLinkSender interface {
	SendMagicLink(ctx context.Context, email, redirectTo string) error
}

type application struct {
	config        config
	store         *storage.Container
	logger        *zap.SugaredLogger
	images        imageStore
	recommender   *recommend.Service
	summarizer    *reviewsummary.Summarizer
	notifier      *notifications.Notifier
	identity      magicLinkSender
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	references    *transactions.ReferenceGenerator

	// background tracks notification goroutines so shutdown can wait for them.
	background sync.WaitGroup
}

type config struct {
	addr        string
	db          dbConfig
	redis       redisConfig
	env         string
	apiURL      string
	frontendURL string
	auth        authConfig
	ai          aiConfig
	mail        mailConfig
	push        pushConfig
	rateLimiter ratelimiter.Config
	market      marketConfig
}

type authConfig struct {
	basic      basicConfig
	token      tokenConfig
	identity   identityConfig
	adminEmail string
}

type tokenConfig struct {
	secret string
	aud    string
	iss    string
}

type basicConfig struct {
	user string
	pass string
}

type identityConfig struct {
	url     string
	anonKey string
}

type aiConfig struct {
	apiKey     string
	baseURL    string
	embedModel string
	chatModel  string
	dimensions int
	timeout    time.Duration
}

type mailConfig struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

type pushConfig struct {
	expoAccessToken string
}

type marketConfig struct {
	requireApproval bool
	referenceSalt   string
	pushTokenMaxAge time.Duration
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleTime  string
}

type redisConfig struct {
	addr     string
	password string
	db       int
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(app.RateLimiterMiddleware)

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Post("/auth/magiclink", app.sendMagicLinkHandler)

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", app.browseListingsHandler)
			r.Get("/zones", app.getDeliveryZonesHandler)
			r.Get("/categories", app.getCategoriesHandler)

			r.With(app.AuthTokenMiddleware).Post("/", app.createListingHandler)

			r.Route("/{listingID}", func(r chi.Router) {
				r.Get("/", app.getListingHandler)
				r.Get("/similar", app.getSimilarListingsHandler)
				r.Get("/reviews", app.getListingReviewsHandler)

				r.Group(func(r chi.Router) {
					r.Use(app.AuthTokenMiddleware)
					r.Delete("/", app.deleteListingHandler)
					r.Patch("/make-available", app.makeListingAvailableHandler)
					r.Post("/reviews", app.createListingReviewHandler)
				})
			})
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/listings", app.getMyListingsHandler)
			r.Get("/purchases", app.getMyPurchasesHandler)
			r.Get("/sales", app.getMySalesHandler)
			r.Post("/push-tokens", app.savePushTokenHandler)
			r.Delete("/push-tokens", app.removePushTokenHandler)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/", app.getCartHandler)
			r.Delete("/", app.clearCartHandler)
			r.Post("/items", app.addCartItemHandler)
			r.Patch("/items/{listingID}", app.updateCartItemHandler)
			r.Delete("/items/{listingID}", app.removeCartItemHandler)
			r.Post("/checkout", app.checkoutHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Use(app.RequireAdmin)
			r.Get("/listings/pending", app.getPendingListingsHandler)
			r.Patch("/listings/{listingID}/approve", app.approveListingHandler)
			r.Delete("/listings/{listingID}", app.rejectListingHandler)
			r.Post("/push-tokens/bulk-remove", app.bulkRemoveTokensHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("waiting for background notifications")
	app.background.Wait()

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
