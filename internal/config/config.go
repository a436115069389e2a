package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries every tunable the service reads from the environment.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ClinicAddress string
	ClinicLat     float64
	ClinicLon     float64

	AgingIntervalMinutes       float64
	StarvationThresholdMinutes float64

	WeightEmergency float64
	WeightTravel    float64
	WeightConsult   float64
	WeightWaiting   float64
	WeightArrival   float64

	OSRMBase      string
	NominatimBase string
}

// Load reads .env if present, then the environment, falling back to the demo
// defaults (Lilavati-area clinic, 5-minute aging, 30-minute starvation).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file, relying on environment variables")
	}
	return &Config{
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "clinic"),
		DBPassword: getenv("DB_PASSWORD", ""),
		DBName:     getenv("DB_NAME", "clinic"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		ClinicAddress: getenv("CLINIC_ADDRESS", "Lilavati Hospital, Bandra West, Mumbai"),
		ClinicLat:     getfloat("CLINIC_LAT", 19.0596),
		ClinicLon:     getfloat("CLINIC_LON", 72.8295),

		AgingIntervalMinutes:       getfloat("AGING_INTERVAL_MINUTES", 5),
		StarvationThresholdMinutes: getfloat("STARVATION_THRESHOLD_MINUTES", 30),

		WeightEmergency: getfloat("WEIGHT_EMERGENCY", 5),
		WeightTravel:    getfloat("WEIGHT_TRAVEL", 2),
		WeightConsult:   getfloat("WEIGHT_CONSULT", 1),
		WeightWaiting:   getfloat("WEIGHT_WAITING", 3),
		WeightArrival:   getfloat("WEIGHT_ARRIVAL", 1.5),

		OSRMBase:      getenv("OSRM_BASE_URL", ""),
		NominatimBase: getenv("NOMINATIM_BASE_URL", ""),
	}
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}
