package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" validate:"required"`
	LogLevel        string        `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat       string        `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`

	// Flat-file inputs and outputs.
	CitationsCSV   string `env:"CITATIONS_CSV" validate:"required"`
	TicketsCSV     string `env:"TICKETS_CSV" validate:"required"`
	StreetsGeoJSON string `env:"STREETS_GEOJSON" validate:"required"`
	StaticDir      string `env:"STATIC_DIR"`
	PublicDir      string `env:"PUBLIC_DIR" validate:"required"`

	// Data preparation files written by parkctl.
	RawCSV       string `env:"RAW_CITATIONS_CSV" validate:"required"`
	FilteredCSV  string `env:"FILTERED_CITATIONS_CSV" validate:"required"`
	AddressesCSV string `env:"ADDRESSES_CSV" validate:"required"`

	CORSOrigins []string `env:"CORS_ORIGINS" validate:"dive,url"`

	// Timezone is the wall-clock zone regulations and citations are recorded in.
	Timezone string         `env:"TIMEZONE" validate:"required"`
	Location *time.Location `env:"-" validate:"-"`

	// Upstream data sources.
	DataSFAppToken   string        `env:"DATASF_APP_TOKEN"`
	GoogleMapsAPIKey string        `env:"GOOGLE_MAPS_API"`
	GeocodeTimeout   time.Duration `env:"GEOCODE_TIMEOUT" validate:"gt=0"`
	GeocodeCacheSize int           `env:"GEOCODE_CACHE_SIZE" validate:"gt=0"`
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set take precedence. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocodeTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODE_TIMEOUT", "30s"))
	if err != nil {
		return nil, errors.New("invalid GEOCODE_TIMEOUT")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":5001"),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,

		CitationsCSV:   sharedcfg.EnvOrDefault("CITATIONS_CSV", "data/citations_geocoded.csv"),
		TicketsCSV:     sharedcfg.EnvOrDefault("TICKETS_CSV", "data/tickets_with_coords.csv"),
		StreetsGeoJSON: sharedcfg.EnvOrDefault("STREETS_GEOJSON", "data/sf_streets.json"),
		StaticDir:      sharedcfg.EnvOrDefault("STATIC_DIR", "frontend/my-app/build"),
		PublicDir:      sharedcfg.EnvOrDefault("PUBLIC_DIR", "frontend/my-app/public"),

		RawCSV:       sharedcfg.EnvOrDefault("RAW_CITATIONS_CSV", "data/parking_citations.csv"),
		FilteredCSV:  sharedcfg.EnvOrDefault("FILTERED_CITATIONS_CSV", "data/filtered_citations.csv"),
		AddressesCSV: sharedcfg.EnvOrDefault("ADDRESSES_CSV", "data/addresses.csv"),

		CORSOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ORIGINS", "http://localhost:3000")),
		Timezone:    sharedcfg.EnvOrDefault("TIMEZONE", "America/Los_Angeles"),

		DataSFAppToken:   os.Getenv("DATASF_APP_TOKEN"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API"),
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: parseGeocodeCacheSize(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

// validate reports the first failing field by its environment variable name.
func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("env")
	})

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	e := verrs[0]
	name := e.Field()
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	if e.Tag() == "required" {
		return fmt.Errorf("%s is required", name)
	}
	return fmt.Errorf("invalid %s: %q failed %q validation", name, fmt.Sprint(e.Value()), e.ActualTag())
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseGeocodeCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
