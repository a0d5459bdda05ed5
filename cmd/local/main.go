package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"clinic-agent/cmd"
	"clinic-agent/internal/agent"
	"clinic-agent/internal/api"
	"clinic-agent/internal/calendar"
	"clinic-agent/internal/chat"
	"clinic-agent/internal/database"
	"clinic-agent/internal/llm"
	"clinic-agent/internal/messaging"
	"clinic-agent/internal/notify"
	"clinic-agent/internal/rag"
	"clinic-agent/internal/web"
)

type Config struct {
	Root           string  `env:"ROOT" envDefault:"./clinic-agent-data"`
	Port           int     `env:"PORT" envDefault:"3001"`
	OpenAIAPIKey   string  `env:"OPENAI_API_KEY,notEmpty,required"`
	ChatModel      string  `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	TitleModel     string  `env:"TITLE_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	TitleTemp      float64 `env:"TITLE_TEMPERATURE" envDefault:"0.3"`
	ClinicInfoPath string  `env:"CLINIC_INFO_PATH" envDefault:"data/clinic_info.json"`
	WebhookURL     string  `env:"NOTIFY_WEBHOOK_URL" envDefault:""`
}

func createDatabase(root string) *gorm.DB {
	path := filepath.Join(root, "db", "clinic-agent.db")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func createServer(services []interface{ AddRoutes(chi.Router) }, port int) *http.Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // Allow all origins (TODO: make this an env var)
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300, // Cache preflight response for 5 minutes
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

	r.Route("/api/v1", func(r chi.Router) {
		for _, service := range services {
			service.AddRoutes(r)
		}
	})

	r.Handle("/*", web.Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating directory for log file: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	slog.Info("starting backend", "root", cfg.Root, "port", cfg.Port, "chat_model", cfg.ChatModel)

	db := createDatabase(cfg.Root)

	info := cmd.LoadClinicInfo(cfg.ClinicInfoPath)

	embedding, err := rag.NewOpenAIEmbedding(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}

	index, err := rag.NewPersistentIndex(filepath.Join(cfg.Root, "vectordb"), embedding)
	if err != nil {
		log.Fatalf("Failed to create knowledge base index: %v", err)
	}
	cmd.BootstrapIndex(context.Background(), index, info)

	queue := messaging.NewInMemoryQueue()

	scheduler := calendar.NewScheduler(db, calendar.WithPublisher(queue))

	clinicAgent, err := agent.NewOpenAI(cfg.OpenAIAPIKey, cfg.ChatModel, agent.NewToolbox(scheduler, index, info), info)
	if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}

	titler := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.TitleModel, cfg.TitleTemp)
	manager := chat.NewSessionManager(db, clinicAgent, titler, info)

	dispatcher := notify.NewDispatcher(db, queue, cfg.WebhookURL, info.Name)

	server := createServer([]interface{ AddRoutes(chi.Router) }{
		api.NewAppointmentService(scheduler),
		api.NewFaqService(index, info),
		api.NewChatService(db, manager),
	}, cfg.Port)

	slog.Info("starting notification dispatcher")
	go dispatcher.Start()

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	slog.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	dispatcher.Stop()

	slog.Info("server stopped")
}
