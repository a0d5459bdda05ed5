package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"

	"clinic-agent/cmd"
	"clinic-agent/internal/database"
	"clinic-agent/internal/messaging"
	"clinic-agent/internal/notify"
)

type WorkerConfig struct {
	DatabaseURL    string `env:"DATABASE_URL,notEmpty,required"`
	RabbitMQURL    string `env:"RABBITMQ_URL,notEmpty,required"`
	WebhookURL     string `env:"NOTIFY_WEBHOOK_URL" envDefault:""`
	ClinicInfoPath string `env:"CLINIC_INFO_PATH" envDefault:"data/clinic_info.json"`
}

func main() {
	log.Println("Starting Notification Worker...")

	cmd.LoadEnvFile()

	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	info := cmd.LoadClinicInfo(cfg.ClinicInfoPath)

	receiver, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	dispatcher := notify.NewDispatcher(db, receiver, cfg.WebhookURL, info.Name)
	go dispatcher.Start()

	log.Println("Worker started. Waiting for booking events. Press Ctrl+C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, stopping dispatcher...")
	dispatcher.Stop()

	log.Println("Worker process stopped.")
}
