package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"company-risk-poc/assess"
	"company-risk-poc/domaincheck"
	"company-risk-poc/geo"
	"company-risk-poc/registry"
	"company-risk-poc/store"
	"company-risk-poc/vision"
)

func main() {
	_ = godotenv.Load()

	// Get port from environment (for cloud deployment) or default to 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	svc := &assess.Service{
		Registry:     registry.NewClient(os.Getenv("CNPJA_API_KEY")),
		Vision:       vision.NewGeminiClient(os.Getenv("GEMINI_API_KEY")),
		Ages:         domaincheck.NewAgeChecker(),
		WhoisMinDays: envInt("WHOIS_MIN_DAYS", domaincheck.DefaultMinAgeDays),
	}

	if key := os.Getenv("GOOGLE_MAPS_API_KEY"); key != "" {
		svc.Geo = geo.NewClient(key)
	} else {
		log.Println("GOOGLE_MAPS_API_KEY not set, address photos must be uploaded")
	}

	// Persistence is optional; without it the service runs stateless.
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		st, err := store.Open(dsn)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer st.Close()
		if err := st.Migrate(context.Background()); err != nil {
			log.Fatalf("database: %v", err)
		}
		svc.Store = st
	} else {
		log.Println("DATABASE_URL not set, running without persistence")
	}

	router := assess.Router(svc)

	log.Printf("✅ company-risk service listening on :%s\n", port)
	log.Println("📍 Endpoints:")
	log.Println("   POST /assess              - Run full risk assessment")
	log.Println("   GET  /assessments/{cnpj}  - Latest stored assessment")
	log.Println("   GET  /report/{cnpj}       - Excel report download")
	log.Println("   POST /typosquatting       - Standalone domain comparison")
	log.Println("   GET  /healthz             - Liveness probe")

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("ignoring invalid %s=%q", key, v)
		return fallback
	}
	return n
}
