package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clinic-agent/cmd"
	"clinic-agent/internal/agent"
	"clinic-agent/internal/api"
	"clinic-agent/internal/calendar"
	"clinic-agent/internal/chat"
	"clinic-agent/internal/database"
	"clinic-agent/internal/llm"
	"clinic-agent/internal/messaging"
	"clinic-agent/internal/rag"
)

type APIConfig struct {
	DatabaseURL    string  `env:"DATABASE_URL,notEmpty,required"`
	RabbitMQURL    string  `env:"RABBITMQ_URL,notEmpty,required"`
	OpenAIAPIKey   string  `env:"OPENAI_API_KEY,notEmpty,required"`
	ChatModel      string  `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	TitleModel     string  `env:"TITLE_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	TitleTemp      float64 `env:"TITLE_TEMPERATURE" envDefault:"0.3"`
	ClinicInfoPath string  `env:"CLINIC_INFO_PATH" envDefault:"data/clinic_info.json"`
	VectorDBDir    string  `env:"VECTOR_DB_DIR" envDefault:""`
	APIPort        string  `env:"API_PORT" envDefault:"8001"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	info := cmd.LoadClinicInfo(cfg.ClinicInfoPath)

	embedding, err := rag.NewOpenAIEmbedding(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}

	var index *rag.Index
	if cfg.VectorDBDir != "" {
		index, err = rag.NewPersistentIndex(cfg.VectorDBDir, embedding)
	} else {
		index, err = rag.NewIndex(embedding)
	}
	if err != nil {
		log.Fatalf("Failed to create knowledge base index: %v", err)
	}
	cmd.BootstrapIndex(context.Background(), index, info)

	// Initialize RabbitMQ Publisher
	publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	scheduler := calendar.NewScheduler(db, calendar.WithPublisher(publisher))

	clinicAgent, err := agent.NewOpenAI(cfg.OpenAIAPIKey, cfg.ChatModel, agent.NewToolbox(scheduler, index, info), info)
	if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}

	titler := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.TitleModel, cfg.TitleTemp)
	manager := chat.NewSessionManager(db, clinicAgent, titler, info)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

	// API Handlers (dependency injection)
	appointmentHandler := api.NewAppointmentService(scheduler)
	faqHandler := api.NewFaqService(index, info)
	chatHandler := api.NewChatService(db, manager)

	r.Route("/api/v1", func(r chi.Router) {
		appointmentHandler.AddRoutes(r)
		faqHandler.AddRoutes(r)
		chatHandler.AddRoutes(r)
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
