package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "POLICYRAG_"

// only applied when the provider is ollama
const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "paraphrase-multilingual"
)

type Config struct {
	PDFPath    string         `yaml:"pdf_path"`
	ChunksPath string         `yaml:"chunks_path" validate:"required"`
	Extract    ExtractConfig  `yaml:"extract"`
	EmbedLLM   LLMConfig      `yaml:"embed_llm"`
	Store      StoreConfig    `yaml:"store"`
	Database   DatabaseConfig `yaml:"database"`
	RAG        RAGConfig      `yaml:"rag"`
	Log        LogConfig      `yaml:"log"`
}

type ExtractConfig struct {
	Mode string    `yaml:"mode" validate:"oneof=native ocr auto"`
	OCR  OCRConfig `yaml:"ocr"`
}

// OCRConfig points at the external binaries used to OCR scanned pages
type OCRConfig struct {
	TesseractPath string `yaml:"tesseract_path"`
	PdftoppmPath  string `yaml:"pdftoppm_path"`
	Language      string `yaml:"language"`
	DPI           int    `yaml:"dpi" validate:"gt=0"`
}

type LLMConfig struct {
	Provider  string        `yaml:"provider" validate:"oneof=ollama openai hashing"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Key       string        `yaml:"key"`
	BatchSize int           `yaml:"batch_size" validate:"gt=0"`
	Dimension int           `yaml:"dimension" validate:"gt=0"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=chromem pgvector"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection" validate:"required"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key" validate:"omitempty,len=32"`
}

// DatabaseConfig is only used by the pgvector backend
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Driver   string `yaml:"driver" validate:"oneof=pgdriver pq"`
	Debug    bool   `yaml:"debug"`
}

type RAGConfig struct {
	TopK       int `yaml:"top_k" validate:"gt=0"`
	MemorySize int `yaml:"memory_size" validate:"gt=0"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// LoadConfig reads the yaml file at path, falling back to defaults when it does not exist,
// then applies POLICYRAG_* environment overrides (a .env file is honoured) and validates the result.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns the configuration used when no config file is present
func Default() *Config {
	return &Config{
		ChunksPath: "data/policy_chunks.json",
		Extract: ExtractConfig{
			Mode: "native",
			OCR: OCRConfig{
				TesseractPath: "tesseract",
				PdftoppmPath:  "pdftoppm",
				Language:      "ben",
				DPI:           300,
			},
		},
		EmbedLLM: LLMConfig{
			Provider:  "ollama",
			BatchSize: 32,
			Dimension: 384,
			CacheTTL:  10 * time.Minute,
		},
		Store: StoreConfig{
			Backend:    "chromem",
			Path:       "chroma_db",
			Collection: "policy_chunks",
		},
		Database: DatabaseConfig{
			Driver: "pgdriver",
		},
		RAG: RAGConfig{
			TopK:       3,
			MemorySize: 5,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// fill zero values left by a partial config file
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.ChunksPath == "" {
		cfg.ChunksPath = def.ChunksPath
	}
	if cfg.Extract.Mode == "" {
		cfg.Extract.Mode = def.Extract.Mode
	}
	if cfg.Extract.OCR.TesseractPath == "" {
		cfg.Extract.OCR.TesseractPath = def.Extract.OCR.TesseractPath
	}
	if cfg.Extract.OCR.PdftoppmPath == "" {
		cfg.Extract.OCR.PdftoppmPath = def.Extract.OCR.PdftoppmPath
	}
	if cfg.Extract.OCR.Language == "" {
		cfg.Extract.OCR.Language = def.Extract.OCR.Language
	}
	if cfg.Extract.OCR.DPI == 0 {
		cfg.Extract.OCR.DPI = def.Extract.OCR.DPI
	}

	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = def.EmbedLLM.Provider
	}
	if cfg.EmbedLLM.Provider == "ollama" {
		if cfg.EmbedLLM.BaseURL == "" {
			cfg.EmbedLLM.BaseURL = defaultOllamaURL
		}
		if cfg.EmbedLLM.Model == "" {
			cfg.EmbedLLM.Model = defaultOllamaModel
		}
	}
	if cfg.EmbedLLM.BatchSize == 0 {
		cfg.EmbedLLM.BatchSize = def.EmbedLLM.BatchSize
	}
	if cfg.EmbedLLM.Dimension == 0 {
		cfg.EmbedLLM.Dimension = def.EmbedLLM.Dimension
	}
	if cfg.EmbedLLM.CacheTTL == 0 {
		cfg.EmbedLLM.CacheTTL = def.EmbedLLM.CacheTTL
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = def.Store.Collection
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = def.Database.Driver
	}

	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.RAG.MemorySize == 0 {
		cfg.RAG.MemorySize = def.RAG.MemorySize
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = def.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = def.Log.MaxAgeDays
	}
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"EMBED_PROVIDER": &cfg.EmbedLLM.Provider,
		"EMBED_BASE_URL": &cfg.EmbedLLM.BaseURL,
		"EMBED_MODEL":    &cfg.EmbedLLM.Model,
		"EMBED_KEY":      &cfg.EmbedLLM.Key,
		"STORE_PATH":     &cfg.Store.Path,
		"PG_DSN":         &cfg.Database.DSN,
		"PG_PASSWORD":    &cfg.Database.Password,
		"ENCRYPTION_KEY": &cfg.Store.EncryptionKey,
		"TESSERACT_PATH": &cfg.Extract.OCR.TesseractPath,
		"LOG_LEVEL":      &cfg.Log.Level,
	}
	for key, field := range overrides {
		if value, ok := os.LookupEnv(envPrefix + key); ok {
			*field = strings.TrimSpace(value)
		}
	}
}
