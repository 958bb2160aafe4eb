package config

import (
	"fmt"
	"log"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/mindcare/internal/domain"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// Storage backends for analysis records.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "memory", "sqlite" or "firestore"
	SQLitePath     string
	KeyFile        string // master key for content encryption, kept apart from the records
	KeyVersion     int    // key version new content is sealed with; raise it to rotate
	UseMockLLM     bool   // true = use mock even on GCP

	LogLevel string
	LogFile  string

	TablesFile string // optional YAML overriding retention and lexical tables

	MaxMessageChars    int
	HistoryWindow      int
	SweepInterval      time.Duration
	ProfileIdleTTL     time.Duration // session profiles untouched this long are dropped
	RateLimitPerMinute int
	DefaultCountry     string

	// TrustedProxies lists the peers allowed to set X-Forwarded-For and
	// X-Real-IP. Empty means the headers are ignored.
	TrustedProxies []netip.Prefix
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

// getPrefixesEnv parses a comma separated list of CIDRs or bare addresses.
// Invalid entries are logged and skipped.
func getPrefixesEnv(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, f := range strings.Split(os.Getenv(key), ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if p, err := netip.ParsePrefix(f); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(f)
		if err != nil {
			log.Printf("invalid entry %q in %s, skipping", f, key)
			continue
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

// Load reads all env vars and builds the config
func Load() *Config {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

// FromEnv builds the config without validating it.
func FromEnv() *Config {
	modeStr := getEnv("MINDCARE_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	return &Config{
		Mode: mode,

		Port: getEnv("MINDCARE_PORT", "8080"),

		GCPProjectID: getEnv("MINDCARE_GCP_PROJECT", ""),
		GCPLocation:  getEnv("MINDCARE_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("MINDCARE_MODEL_NAME", "gemini-2.5-flash-lite"),

		StorageBackend: strings.ToLower(getEnv("MINDCARE_STORAGE_BACKEND", BackendMemory)),
		SQLitePath:     getEnv("MINDCARE_SQLITE_PATH", "mindcare.db"),
		KeyFile:        getEnv("MINDCARE_KEY_FILE", ".mindcare/master.key"),
		KeyVersion:     getIntEnv("MINDCARE_KEY_VERSION", 1),
		UseMockLLM:     getBoolEnv("MINDCARE_USE_MOCK_LLM", mode == ModeLocal),

		LogLevel: getEnv("MINDCARE_LOG_LEVEL", "info"),
		LogFile:  getEnv("MINDCARE_LOG_FILE", ""),

		TablesFile: getEnv("MINDCARE_TABLES_FILE", ""),

		MaxMessageChars:    getIntEnv("MINDCARE_MAX_MESSAGE_CHARS", 4000),
		HistoryWindow:      getIntEnv("MINDCARE_HISTORY_WINDOW", 10),
		SweepInterval:      getDurationEnv("MINDCARE_SWEEP_INTERVAL", time.Hour),
		ProfileIdleTTL:     getDurationEnv("MINDCARE_PROFILE_IDLE_TTL", 24*time.Hour),
		RateLimitPerMinute: getIntEnv("MINDCARE_RATE_LIMIT_PER_MINUTE", 60),
		DefaultCountry:     getEnv("MINDCARE_DEFAULT_COUNTRY", "us"),

		TrustedProxies: getPrefixesEnv("MINDCARE_TRUSTED_PROXIES"),
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return fmt.Errorf("MINDCARE_GCP_PROJECT must be set in gcp mode: %w", domain.ErrConfiguration)
	}
	switch c.StorageBackend {
	case BackendMemory, BackendSQLite:
	case BackendFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("firestore backend needs MINDCARE_GCP_PROJECT: %w", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("unknown storage backend %q: %w", c.StorageBackend, domain.ErrConfiguration)
	}
	if c.KeyVersion < 1 {
		return fmt.Errorf("MINDCARE_KEY_VERSION must be at least 1: %w", domain.ErrConfiguration)
	}
	if c.MaxMessageChars <= 0 {
		return fmt.Errorf("MINDCARE_MAX_MESSAGE_CHARS must be positive: %w", domain.ErrConfiguration)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("MINDCARE_HISTORY_WINDOW must be positive: %w", domain.ErrConfiguration)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("MINDCARE_SWEEP_INTERVAL must be positive: %w", domain.ErrConfiguration)
	}
	if c.ProfileIdleTTL <= 0 {
		return fmt.Errorf("MINDCARE_PROFILE_IDLE_TTL must be positive: %w", domain.ErrConfiguration)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("MINDCARE_RATE_LIMIT_PER_MINUTE must not be negative: %w", domain.ErrConfiguration)
	}
	return nil
}
