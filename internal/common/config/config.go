package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	LogLevel     string
	CORSOrigins  []string

	// Plot Service
	DBPath         string
	StorageRoot    string
	MigrationsPath string

	// Upstreams
	PlotsURL     string
	ConverterURL string

	// Область отображения по умолчанию для overlay
	MaxDisplayWidth  int
	MaxDisplayHeight int

	// порт задан через PORT или файл, а не взят по умолчанию
	portSet bool
}

// File: необязательный TOML-файл (CONFIG_FILE). Переменные окружения важнее.
type File struct {
	Port        string   `toml:"port"`
	Environment string   `toml:"env"`
	LogLevel    string   `toml:"log_level"`
	CORSOrigins []string `toml:"cors_origins"`

	Plots struct {
		DBPath      string `toml:"db_path"`
		StorageRoot string `toml:"storage_root"`
		Migrations  string `toml:"migrations"`
	} `toml:"plots"`

	Upstreams struct {
		Plots     string `toml:"plots"`
		Converter string `toml:"converter"`
	} `toml:"upstreams"`

	Display struct {
		MaxWidth  int `toml:"max_width"`
		MaxHeight int `toml:"max_height"`
	} `toml:"display"`
}

// ReadFile разбирает TOML-файл конфигурации.
func ReadFile(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &f, nil
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	cfg, err := LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.WithError(err).Warn("config file ignored, using environment only")
		cfg, _ = LoadFile("")
	}
	return cfg
}

// LoadFile: как Load, но с явным путём к TOML-файлу (пустой путь: без файла).
func LoadFile(path string) (*Config, error) {
	f := &File{}
	if path != "" {
		var err error
		if f, err = ReadFile(path); err != nil {
			return nil, err
		}
	}

	return &Config{
		Port:         getEnv("PORT", or(f.Port, "3000")),
		Environment:  getEnv("ENV", or(f.Environment, "development")),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		LogLevel:     getEnv("LOG_LEVEL", or(f.LogLevel, "info")),
		CORSOrigins:  getEnvAsList("CORS_ORIGINS", f.CORSOrigins),

		DBPath:         getEnv("PLOTS_DB_PATH", or(f.Plots.DBPath, "data/db/plots.db")),
		StorageRoot:    getEnv("PLOTS_STORAGE_ROOT", or(f.Plots.StorageRoot, "data/ventures")),
		MigrationsPath: getEnv("PLOTS_MIGRATIONS", or(f.Plots.Migrations, "migrations/001_init_plots.sql")),

		PlotsURL:     getEnv("PLOTS_URL", or(f.Upstreams.Plots, "http://localhost:3002")),
		ConverterURL: getEnv("CONVERTER_URL", or(f.Upstreams.Converter, "http://localhost:3001")),

		MaxDisplayWidth:  getEnvAsInt("MAX_DISPLAY_WIDTH", orInt(f.Display.MaxWidth, 900)),
		MaxDisplayHeight: getEnvAsInt("MAX_DISPLAY_HEIGHT", orInt(f.Display.MaxHeight, 600)),

		portSet: os.Getenv("PORT") != "" || f.Port != "",
	}, nil
}

// IsProduction: JSON-логи и без отладочного вывода.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PortOr подменяет порт по умолчанию, если порт не задан ни в окружении, ни в файле.
func (c *Config) PortOr(def string) string {
	if !c.portSet {
		return def
	}
	return c.Port
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func or(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

func orInt(val, def int) int {
	if val > 0 {
		return val
	}
	return def
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
