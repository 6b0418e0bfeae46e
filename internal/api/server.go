package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ocakbasi/order-sync/internal/config"
	"github.com/ocakbasi/order-sync/internal/database"
	"github.com/ocakbasi/order-sync/internal/handlers"
	"github.com/ocakbasi/order-sync/internal/ingest"
	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/outbox"
	"github.com/ocakbasi/order-sync/internal/repository"
	"github.com/ocakbasi/order-sync/internal/service"
	"github.com/ocakbasi/order-sync/pkg/kafka"
	"github.com/ocakbasi/order-sync/pkg/logger"
	"github.com/ocakbasi/order-sync/pkg/middleware"
)

// Server is the order store service: the REST surface the displays poll
// and transition against, plus the background machinery behind it (outbox
// processor, Kafka fan-out, delivery-platform intake).
type Server struct {
	config          *config.Config
	logger          logger.Logger
	router          *mux.Router
	httpServer      *http.Server
	db              *database.Database
	orderRepo       *repository.OrderRepository
	outboxRepo      *repository.OutboxRepository
	orderService    *service.OrderService
	outboxProcessor *outbox.Processor
	kafkaProducer   *kafka.Producer
	kafkaConsumer   *kafka.Consumer
	intakeConsumer  *ingest.Consumer
	rateLimiter     *middleware.RateLimiterMiddleware
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, logger logger.Logger) (*Server, error) {
	r := mux.NewRouter()
	db, err := database.New(cfg, logger)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	orderRepo := repository.NewOrderRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)

	printer := service.NewLogPrinter(logger)
	orderService := service.NewOrderService(orderRepo, outboxRepo, printer, logger)

	processorConfig := outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}
	outboxProcessor := outbox.NewProcessor(outboxRepo, processorConfig, logger)

	server := &Server{
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:          logger,
		config:          cfg,
		db:              db,
		orderRepo:       orderRepo,
		outboxRepo:      outboxRepo,
		orderService:    orderService,
		outboxProcessor: outboxProcessor,
	}

	// Fan-out through Kafka when brokers are configured; otherwise the
	// outbox drains into the log so it never backs up.
	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)

	if err != nil {
		logger.Warn("Kafka unavailable, outbox events will only be logged", "error", err)

		loggingHandler := outbox.NewLoggingHandler(logger)
		outboxProcessor.RegisterHandler(models.EventOrderCreated, loggingHandler)
		outboxProcessor.RegisterHandler(models.EventOrderStatusChanged, loggingHandler)
	} else {
		server.kafkaProducer = kafkaProducer

		kafkaHandler := outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.StatusEventsTopic, logger)
		outboxProcessor.RegisterHandler(models.EventOrderCreated, kafkaHandler)
		outboxProcessor.RegisterHandler(models.EventOrderStatusChanged, kafkaHandler)

		consumerConfig := &kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topics:        []string{cfg.Kafka.StatusEventsTopic},
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
		}

		kafkaConsumer, err := kafka.NewConsumer(consumerConfig, logger)

		if err != nil {
			logger.Warn("Failed to create Kafka consumer", "error", err)
		} else {
			orderEventsHandler := handlers.NewOrderEventsHandler(logger)
			kafkaConsumer.RegisterHandler(cfg.Kafka.StatusEventsTopic, orderEventsHandler)
			server.kafkaConsumer = kafkaConsumer
		}
	}

	if cfg.AMQP.Enabled {
		server.intakeConsumer = ingest.NewConsumer(ingest.Config{
			URL:   cfg.AMQP.URL,
			Queue: cfg.AMQP.IntakeQueue,
		}, orderService, logger)
	}

	server.setupRoutes()

	outboxProcessor.Start()

	if server.kafkaConsumer != nil {
		if err := server.kafkaConsumer.Start(); err != nil {
			logger.Error("Failed to start Kafka consumer", "error", err)
			// Non-fatal, continue without the consumer
		}
	}

	if server.intakeConsumer != nil {
		server.intakeConsumer.Start()
	}

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()

	if s.intakeConsumer != nil {
		s.intakeConsumer.Stop()
	}

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for our API
func (s *Server) setupRoutes() {
	s.rateLimiter = middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
		GlobalMaxTokens:  100,
		GlobalRefillRate: 50,
		IPMaxTokens:      20,
		IPRefillRate:     10,
	}, s.logger)

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	api.HandleFunc("/orders", s.listOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.getOrderByIDHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/transition", s.transitionOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/print", s.printTicketHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/history", s.getStatusHistoryHandler).Methods(http.MethodGet)
}

// Middleware for logging requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
