// Package main provides the grid subset HTTP server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.ngs.io/grid-subset/internal/adapter/store/gridfile"
	"go.ngs.io/grid-subset/internal/config"
	httpHandler "go.ngs.io/grid-subset/internal/http"
	"go.ngs.io/grid-subset/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("grid-subset version %s\n", version)
		return
	}

	// Load configuration from environment.
	port := getEnv("PORT", "8080")
	configPath := getEnv("CONFIG_PATH", "")

	log.Printf("Starting grid subset server...")
	log.Printf("Port: %s", port)

	cfg := config.Default()
	if configPath != "" {
		log.Printf("Config: %s", configPath)
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else {
		log.Printf("No CONFIG_PATH set, serving preset regions only")
	}
	log.Printf("Regions: %v", cfg.RegionNames())
	log.Printf("Datasets: %v", cfg.DatasetNames())

	// Initialize use cases.
	subsetUC := usecase.NewSubsetUseCase(log.Default())
	extractUC := usecase.NewExtractionUseCase(cfg, gridfile.NewStore(), subsetUC)

	router := httpHandler.SetupRouter(extractUC)

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost:%s/health", port)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Grid Subset Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  grid-subset-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  CONFIG_PATH             TOML file with [regions.*] and [datasets.*] (optional)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                        Health check")
	fmt.Println("  GET /v1/regions                    List named regions")
	fmt.Println("  GET /v1/datasets                   List configured datasets")
	fmt.Println("  GET /v1/datasets/:name/subset      Extract a subset")
	fmt.Println("      ?region=andes | lat_min=&lat_max=&lon_min=&lon_max=")
	fmt.Println("      &time=<index> &mode=bbox|mask &values=true|false")
	fmt.Println()
}
