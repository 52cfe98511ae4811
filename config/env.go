package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultAppEnv        = "local"
	defaultAppPort       = "8080"
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "shopkart"
	defaultRedisAddr     = "localhost:6379"
	defaultJWTSecret     = "change-me-in-production"
	defaultJWTTTL        = time.Hour
	defaultQueueDriver   = "memory"
	defaultMaxBodyBytes  = 4 << 20
)

// keys that may be overridden from the process environment.
var knownKeys = []string{
	"APP_ENV", "APP_PORT",
	"MONGO_URI", "MONGO_DATABASE",
	"REDIS_ADDR", "REDIS_PASSWORD",
	"JWT_SECRET", "JWT_TTL",
	"QUEUE_DRIVER", "QUEUE_WORKERS",
	"STORAGE_DISK", "STORAGE_LOCAL_ROOT", "STORAGE_URL",
	"S3_BUCKET", "S3_REGION", "S3_KEY", "S3_SECRET", "S3_ENDPOINT", "S3_URL",
	"RATE_LIMIT", "MAX_BODY_BYTES", "LOG_MONGO", "EVENT_WORKERS",
	"TRUSTED_PROXIES",
}

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json, then .env, then the process environment.
// Later sources win. It is safe to call many times; only the first call reads.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":        defaultAppEnv,
		"APP_PORT":       defaultAppPort,
		"MONGO_URI":      defaultMongoURI,
		"MONGO_DATABASE": defaultMongoDatabase,
		"REDIS_ADDR":     defaultRedisAddr,
		"REDIS_PASSWORD": "",
		"JWT_SECRET":     defaultJWTSecret,
		"QUEUE_DRIVER":   defaultQueueDriver,
	}
}

func AppEnv() string { _ = Load(); return get("APP_ENV", defaultAppEnv) }

func AppPort() string { _ = Load(); return get("APP_PORT", defaultAppPort) }

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	switch strings.ToLower(AppEnv()) {
	case "production", "prod":
		return true
	}
	return false
}

func MongoURI() string { _ = Load(); return get("MONGO_URI", defaultMongoURI) }

func MongoDatabase() string { _ = Load(); return get("MONGO_DATABASE", defaultMongoDatabase) }

func RedisAddr() string { _ = Load(); return get("REDIS_ADDR", defaultRedisAddr) }

func RedisPassword() string { _ = Load(); return get("REDIS_PASSWORD", "") }

func JWTSecret() string { _ = Load(); return get("JWT_SECRET", defaultJWTSecret) }

// JWTTTL is the lifetime of issued access tokens (Go duration syntax, e.g. "1h").
func JWTTTL() time.Duration {
	_ = Load()
	d, err := time.ParseDuration(get("JWT_TTL", ""))
	if err != nil || d <= 0 {
		return defaultJWTTTL
	}
	return d
}

// QueueDriver is "memory" or "redis".
func QueueDriver() string {
	_ = Load()
	switch d := strings.ToLower(get("QUEUE_DRIVER", defaultQueueDriver)); d {
	case "memory", "redis":
		return d
	default:
		return defaultQueueDriver
	}
}

func QueueWorkers() int { _ = Load(); return getInt("QUEUE_WORKERS", 2) }

func EventWorkers() int { _ = Load(); return getInt("EVENT_WORKERS", 4) }

// RateLimit is the number of requests allowed per client IP per minute.
func RateLimit() int { _ = Load(); return getInt("RATE_LIMIT", 200) }

// TrustedProxies lists the IPs or CIDRs of reverse proxies whose
// X-Forwarded-For and X-Real-Ip headers are believed. Empty by default.
func TrustedProxies() []string {
	_ = Load()
	var out []string
	for _, p := range strings.Split(get("TRUSTED_PROXIES", ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func MaxBodyBytes() int64 {
	_ = Load()
	n, err := strconv.ParseInt(get("MAX_BODY_BYTES", ""), 10, 64)
	if err != nil || n <= 0 {
		return defaultMaxBodyBytes
	}
	return n
}

// LogMongo enables the asynchronous MongoDB log sink.
func LogMongo() bool {
	_ = Load()
	b, _ := strconv.ParseBool(get("LOG_MONGO", "false"))
	return b
}

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDisk() string { _ = Load(); return get("STORAGE_DISK", "local") }

func StorageLocalRoot() string { _ = Load(); return get("STORAGE_LOCAL_ROOT", "uploads") }

func StorageURL() string { _ = Load(); return get("STORAGE_URL", "/uploads") }

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// Get reads any config key by name with a fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Set overrides a key at runtime. Intended for tests and CLI flags.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	values[strings.ToUpper(key)] = value
	mu.Unlock()
}

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := mergeDotEnv(envPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	mergeEnviron(loaded)

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(v)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func mergeEnviron(out map[string]string) {
	for _, key := range knownKeys {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			out[key] = strings.TrimSpace(v)
		}
	}
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(get(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
