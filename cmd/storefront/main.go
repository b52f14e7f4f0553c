package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sifnet/storefront/internal/application/account"
	"github.com/sifnet/storefront/internal/application/catalog"
	"github.com/sifnet/storefront/internal/application/checkout"
	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/infrastructure/auth"
	"github.com/sifnet/storefront/internal/infrastructure/config"
	"github.com/sifnet/storefront/internal/infrastructure/currency"
	"github.com/sifnet/storefront/internal/infrastructure/logger"
	"github.com/sifnet/storefront/internal/infrastructure/remoteapi"
	"github.com/sifnet/storefront/internal/infrastructure/storage"
	"github.com/sifnet/storefront/internal/interfaces/http/handler"
	"github.com/sifnet/storefront/internal/interfaces/http/middleware"
	"github.com/sifnet/storefront/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// maxRequestBody leaves room for an image upload plus its form fields
const maxRequestBody = catalog.MaxImageSize + 1<<20

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	log.Info("Starting storefront",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("currency", cfg.Currency.Code),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("api", cfg.API.BaseURL),
	)

	ctx := context.Background()

	// Client-side storage shared by the cart and the session
	kv, err := storage.NewFactory(cfg, storage.WithLogger(log), storage.WithLogLevel(cfg.Log.Level)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Warn("Failed to close storage", zap.Error(err))
		}
	}()

	formatter := currency.NewFormatter(cfg.Currency.Code, cfg.Currency.Symbol)
	store := cart.NewStore(ctx, kv,
		cart.WithStorageKey(cfg.Storage.CartKey),
		cart.WithCurrency(formatter.CurrencyCode()),
		cart.WithFormatter(formatter),
		cart.WithLogger(log),
		cart.WithLoadTimeout(cfg.Storage.LoadTimeout),
		cart.WithWriteTimeout(cfg.Storage.WriteTimeout),
	)

	session := auth.NewSession(kv,
		auth.WithKeys(cfg.Auth.UserKey, cfg.Auth.TokenKey),
		auth.WithJWTSecret(cfg.Auth.JWTSecret),
		auth.WithLogger(log),
	)
	if session.Restore(ctx) {
		user, _ := session.User()
		log.Info("Session restored", zap.String("user", user.Email))
	}

	client, err := remoteapi.NewClient(cfg.API.BaseURL,
		remoteapi.WithTimeout(cfg.API.Timeout),
		remoteapi.WithTokenSource(session),
		remoteapi.WithLogger(log),
	)
	if err != nil {
		log.Fatal("Failed to create API client", zap.Error(err))
	}

	handoff, closeHandoff, err := newHandoff(cfg.Checkout, log)
	if err != nil {
		log.Fatal("Failed to set up checkout", zap.String("channel", cfg.Checkout.Channel), zap.Error(err))
	}
	defer closeHandoff()

	// Application services
	catalogSvc := catalog.NewService(client, store, session, log)
	accountSvc := account.NewService(client, session, log)
	checkoutSvc := checkout.NewService(store, handoff,
		checkout.WithGreeting(cfg.Checkout.Greeting),
		checkout.WithCustomer(session),
		checkout.WithLogger(log),
	)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORS(cors),
		middleware.Secure(),
		middleware.BodyLimit(maxRequestBody),
	)

	r := router.NewRouter(engine)
	r.Register(
		handler.NewSystemHandler(cfg.Currency.Code, formatter.CurrencySymbol(), cfg.Storage.Driver).Routes(),
		handler.NewCartHandler(store, catalogSvc).Routes(),
		handler.NewCatalogHandler(catalogSvc).Routes(),
		handler.NewSessionHandler(accountSvc).Routes(),
		handler.NewCheckoutHandler(checkoutSvc).Routes(),
	)
	r.Setup()

	for _, route := range r.Routes() {
		log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// The final cart write must land before storage is closed
	if err := store.Close(shutdownCtx); err != nil {
		log.Error("Cart was not flushed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newHandoff builds the configured checkout channel and its cleanup
func newHandoff(cfg config.CheckoutConfig, log *zap.Logger) (checkout.Handoff, func(), error) {
	noop := func() {}

	switch cfg.Channel {
	case config.ChannelWhatsApp:
		h, err := checkout.NewWhatsAppHandoff(cfg.WhatsAppBaseURL, cfg.WhatsAppPhone, nil)
		if err != nil {
			return nil, noop, err
		}
		return h, noop, nil
	case config.ChannelAMQP:
		h, err := checkout.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, log)
		if err != nil {
			return nil, noop, err
		}
		return h, func() {
			if err := h.Close(); err != nil {
				log.Warn("Failed to close AMQP connection", zap.Error(err))
			}
		}, nil
	default:
		return checkout.NewLogHandoff(log), noop, nil
	}
}
