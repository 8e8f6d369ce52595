package utils

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"NEXTUP_PORT" default:"8080"`
	// TCP event feed address, empty disables it
	SyncAddr string `envconfig:"NEXTUP_SYNC_ADDR" default:":7070"`

	DBSnapshot string `envconfig:"NEXTUP_DB_SNAPSHOT"`

	APIKey     string        `envconfig:"NEXTUP_API_KEY"`
	APIBaseURL string        `envconfig:"NEXTUP_API_BASE_URL" default:"https://streaming-availability.p.rapidapi.com"`
	APICountry string        `envconfig:"NEXTUP_API_COUNTRY" default:"us"`
	APITimeout time.Duration `envconfig:"NEXTUP_API_TIMEOUT" default:"12s"`

	JWTSecret string        `envconfig:"NEXTUP_JWT_SECRET" default:"dev-secret-change-me"`
	JWTIssuer string        `envconfig:"NEXTUP_JWT_ISSUER" default:"nextuptv"`
	JWTTTL    time.Duration `envconfig:"NEXTUP_JWT_TTL" default:"24h"`
}

// Load reads .env (when present) and the NEXTUP_* environment. Defaults are
// dev values; set NEXTUP_JWT_SECRET and NEXTUP_API_KEY for real deployments.
func Load() Config {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		log.Fatalf("config error: %v", err)
	}
	return c
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func (c Config) Auth() AuthConfig {
	return AuthConfig{
		JWTSecret:   c.JWTSecret,
		JWTIssuer:   c.JWTIssuer,
		JWTDuration: c.JWTTTL,
	}
}
