package main

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/soundprint/soundprint/pkg/logger"
	"github.com/soundprint/soundprint/pkg/soundprint"
)

var (
	port           int
	dbPath         string
	tempDir        string
	rate           int
	allowedOrigins string
	requestTimeout time.Duration
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SOUNDPRINT_DB_PATH", "soundprint.afp"), "path to the recognizer's database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SOUNDPRINT_TEMP_DIR", "/tmp"), "scratch directory for audio conversion")
	flag.IntVar(&rate, "rate", 11025, "target sample rate for fingerprinting")
	flag.StringVar(&allowedOrigins, "origins", "*", "comma-separated list of allowed CORS origins")
	flag.DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "deadline for the fingerprinting pipeline itself, excluding audio conversion/download")
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	// init read the flag defaults before .env was loaded; pick up its values.
	dbPath = getEnvOrDefault("SOUNDPRINT_DB_PATH", dbPath)
	tempDir = getEnvOrDefault("SOUNDPRINT_TEMP_DIR", tempDir)
	flag.Parse()
	log := logger.GetLogger()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		for _, o := range strings.Split(allowedOrigins, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
	}

	engine, err := soundprint.New(soundprint.WithTargetRate(rate), soundprint.WithRequestTimeout(requestTimeout))
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	if _, statErr := os.Stat(dbPath); statErr == nil {
		if err := engine.Open(dbPath); err != nil {
			log.Fatalf("failed to open database %s: %v", dbPath, err)
		}
	}
	defer engine.Close()

	server := &Server{
		engine: engine,
		config: &ServerConfig{
			Port:           port,
			DBPath:         dbPath,
			TempDir:        tempDir,
			TargetRate:     rate,
			AllowedOrigins: origins,
		},
		log: log,
	}

	if err := server.Start(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
