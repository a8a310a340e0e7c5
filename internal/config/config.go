package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/DennisWilmot/land-mapping-web/internal/division"
	"github.com/DennisWilmot/land-mapping-web/internal/geometry"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// Storage backends for saved selections.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	CORS           CORSConfig
	Data           DataConfig
	Classification ClassificationConfig
	Storage        StorageConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// DSN returns the pgx connection string for the configuration.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// DataConfig locates the input datasets.
type DataConfig struct {
	ParcelsPath           string
	CommunitiesPath       string
	BoundaryPath          string
	OwnersPath            string
	CommunityNameProperty string
}

// ClassificationConfig controls the preprocessing pass.
type ClassificationConfig struct {
	Divisions           []division.Rule
	Fallback            string
	RepresentativePoint string
	SpatialIndex        string
	GridCells           int
	CacheSize           int
}

// StorageConfig selects where saved selections are persisted.
type StorageConfig struct {
	Backend    string
	FilePath   string
	SQLitePath string
	RedisAddr  string
	RedisKey   string
}

// DefaultDivisionRules are used when no config file provides `divisions`.
func DefaultDivisionRules() []division.Rule {
	return []division.Rule{
		{Division: models.DivisionName("Northern"), Keywords: []string{"NORTH", "HILL", "MOUNT"}},
		{Division: models.DivisionName("Central"), Keywords: []string{"CENTRAL", "TOWN", "PARK"}},
		{Division: models.DivisionName("Southern"), Keywords: []string{"SOUTH", "BAY", "PEN"}},
	}
}

// Load reads configuration from environment variables and, when CONFIG_FILE
// is set, from that YAML file. Environment variables take precedence.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "landmap")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	v.SetDefault("DATA_PARCELS_PATH", "data/parcels.geojson")
	v.SetDefault("DATA_COMMUNITIES_PATH", "data/communities.geojson")
	v.SetDefault("DATA_BOUNDARY_PATH", "data/boundary.geojson")
	v.SetDefault("DATA_OWNERS_PATH", "data/owners.csv")
	v.SetDefault("COMMUNITY_NAME_PROPERTY", "COMMUNITY")

	v.SetDefault("DIVISION_FALLBACK", division.FallbackRoundRobin)
	v.SetDefault("REPRESENTATIVE_POINT", geometry.RepresenterVertexMean)
	v.SetDefault("SPATIAL_INDEX", division.IndexGrid)
	v.SetDefault("GRID_CELLS", 32)
	v.SetDefault("PREPROCESS_CACHE_SIZE", 4)

	v.SetDefault("STORAGE_BACKEND", StorageFile)
	v.SetDefault("STORAGE_FILE_PATH", "data/saved_selections.json")
	v.SetDefault("SQLITE_PATH", "data/landmap.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_KEY", "landmap:saved-selections")

	// Bind environment variables
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	rules := DefaultDivisionRules()
	if v.IsSet("divisions") {
		rules = nil
		if err := v.UnmarshalKey("divisions", &rules); err != nil {
			return nil, fmt.Errorf("failed to parse divisions: %w", err)
		}
	}

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Data: DataConfig{
			ParcelsPath:           v.GetString("DATA_PARCELS_PATH"),
			CommunitiesPath:       v.GetString("DATA_COMMUNITIES_PATH"),
			BoundaryPath:          v.GetString("DATA_BOUNDARY_PATH"),
			OwnersPath:            v.GetString("DATA_OWNERS_PATH"),
			CommunityNameProperty: v.GetString("COMMUNITY_NAME_PROPERTY"),
		},
		Classification: ClassificationConfig{
			Divisions:           rules,
			Fallback:            v.GetString("DIVISION_FALLBACK"),
			RepresentativePoint: v.GetString("REPRESENTATIVE_POINT"),
			SpatialIndex:        v.GetString("SPATIAL_INDEX"),
			GridCells:           v.GetInt("GRID_CELLS"),
			CacheSize:           v.GetInt("PREPROCESS_CACHE_SIZE"),
		},
		Storage: StorageConfig{
			Backend:    strings.ToLower(v.GetString("STORAGE_BACKEND")),
			FilePath:   v.GetString("STORAGE_FILE_PATH"),
			SQLitePath: v.GetString("SQLITE_PATH"),
			RedisAddr:  v.GetString("REDIS_ADDR"),
			RedisKey:   v.GetString("REDIS_KEY"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
// Database settings are only checked when the postgres backend is selected.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate data config
	if c.Data.ParcelsPath == "" {
		return fmt.Errorf("DATA_PARCELS_PATH is required")
	}
	if c.Data.CommunitiesPath == "" {
		return fmt.Errorf("DATA_COMMUNITIES_PATH is required")
	}
	if c.Data.BoundaryPath == "" {
		return fmt.Errorf("DATA_BOUNDARY_PATH is required")
	}
	if c.Data.CommunityNameProperty == "" {
		return fmt.Errorf("COMMUNITY_NAME_PROPERTY is required")
	}

	if err := c.Classification.validate(); err != nil {
		return err
	}

	return c.validateStorage()
}

func (c ClassificationConfig) validate() error {
	if _, err := division.NewFallback(c.Fallback); err != nil {
		return fmt.Errorf("DIVISION_FALLBACK: %w", err)
	}
	if _, err := geometry.NewRepresenter(c.RepresentativePoint); err != nil {
		return fmt.Errorf("REPRESENTATIVE_POINT: %w", err)
	}
	switch c.SpatialIndex {
	case division.IndexLinear, division.IndexGrid:
	default:
		return fmt.Errorf("SPATIAL_INDEX must be %q or %q", division.IndexLinear, division.IndexGrid)
	}
	if c.GridCells < 1 {
		return fmt.Errorf("GRID_CELLS must be at least 1")
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("PREPROCESS_CACHE_SIZE must be at least 1")
	}
	if len(c.Divisions) == 0 {
		return fmt.Errorf("at least one division rule is required")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageMemory:
		return nil
	case StorageFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("STORAGE_FILE_PATH is required for the file backend")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
		if c.Storage.RedisKey == "" {
			return fmt.Errorf("REDIS_KEY is required for the redis backend")
		}
	case StoragePostgres:
		return c.Database.validate()
	default:
		return fmt.Errorf("STORAGE_BACKEND %q is not supported", c.Storage.Backend)
	}
	return nil
}

func (c DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.PoolMin > c.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
