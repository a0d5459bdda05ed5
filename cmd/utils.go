package cmd

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"clinic-agent/internal/clinic"
	"clinic-agent/internal/rag"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

func LoadClinicInfo(path string) *clinic.Info {
	info, err := clinic.Load(path)
	if err != nil {
		log.Fatalf("Failed to load clinic info from %s: %v", path, err)
	}
	return info
}

// BootstrapIndex fills the knowledge base from the clinic info file. Already
// populated indexes are left untouched so restarts skip re-embedding.
func BootstrapIndex(ctx context.Context, index *rag.Index, info *clinic.Info) {
	if err := index.Bootstrap(ctx, info.Documents()); err != nil {
		log.Fatalf("Failed to bootstrap knowledge base: %v", err)
	}
	log.Printf("knowledge base ready with %d chunks", index.Count())
}
