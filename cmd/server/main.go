// Package main provides the generation profiles HTTP server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"go.ngs.io/gridprofiles/internal/adapter/hsds"
	"go.ngs.io/gridprofiles/internal/adapter/store/csv"
	"go.ngs.io/gridprofiles/internal/config"
	httpHandler "go.ngs.io/gridprofiles/internal/http"
	"go.ngs.io/gridprofiles/internal/usecase"
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
		fmt.Printf("gridprofiles version %s\n", version)
		return
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting gridprofiles server...")
	log.Printf("Port: %s", cfg.Port)
	log.Printf("Plant table: %s", cfg.PlantsCSV)
	log.Printf("RAP-130 root: %s (fallback %s)", cfg.NOAABaseURL, cfg.NOAAFallbackURL)

	curves, err := cfg.PowerCurves()
	if err != nil {
		log.Fatalf("Failed to load power curves: %v", err)
	}

	// Initialize stores and use cases.
	plantStore := csv.NewPlantStore(cfg.PlantsCSV)
	windUC := usecase.NewWindProfileUseCase(cfg.WindFetcherFactory(), curves, cfg.WindOptions())

	// Solar profiles need an NREL API key.
	var solarUC *usecase.SolarProfileUseCase
	wtk, err := cfg.IrradianceSource()
	switch {
	case err == nil:
		log.Printf("WIND Toolkit: %s%s", cfg.HSDSEndpoint, cfg.HSDSDomain)
		solarUC = usecase.NewSolarProfileUseCase(wtk, cfg.SolarOptions())
	case errors.Is(err, hsds.ErrNoAPIKey):
		log.Printf("Solar profiles disabled (NREL_API_KEY is unset)")
	default:
		log.Fatalf("Failed to configure the WIND Toolkit source: %v", err)
	}

	// Setup router.
	handler := httpHandler.NewHandler(plantStore, windUC, solarUC)
	router := httpHandler.SetupRouter(handler, cfg.CORSAllowedOrigins)

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("API endpoints:")
	log.Printf("  - GET /v1/plants")
	log.Printf("  - GET /v1/profiles/wind")
	if solarUC != nil {
		log.Printf("  - GET /v1/profiles/solar")
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("gridprofiles server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                     Server port (default: 8080)")
	fmt.Println("  PLANTS_CSV               Plant table (default: ./data/plant.csv)")
	fmt.Println("  NOAA_BASE_URL            RAP-130 NCSS root")
	fmt.Println("  NOAA_FALLBACK_URL        RAP-130 archive NCSS root, tried on 404")
	fmt.Println("  NREL_API_KEY             HSDS API key (solar profiles are disabled without it)")
	fmt.Println("  HSDS_ENDPOINT            HSDS gateway (default: https://developer.nrel.gov/api/hsds)")
	fmt.Println("  HSDS_DOMAIN              WIND Toolkit domain (default: /nrel/wtk-us.h5)")
	fmt.Println("  HTTP_TIMEOUT             Upstream request timeout (default: 60s)")
	fmt.Println("  BOX_MARGIN_DEG           Degrees added around the plant extent (default: 1)")
	fmt.Println("  POWER_CURVE_TURBINE_CSV  Turbine power curve table (default: embedded)")
	fmt.Println("  POWER_CURVE_STATE_CSV    State power curve table (default: embedded)")
	fmt.Println("  CORS_ALLOWED_ORIGINS     Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  GRIDPROFILES_CONFIG      YAML file with the same settings (environment wins)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                                      Health check")
	fmt.Println("  GET /v1/plants?type=wind|wind_offshore|solar      List plants")
	fmt.Println("  GET /v1/profiles/wind?start=&end=[&format=csv]    Wind profile (at most 31 days)")
	fmt.Println("  GET /v1/profiles/solar?start=&end=[&format=csv]   Solar profile (2007-2013)")
	fmt.Println()
}
