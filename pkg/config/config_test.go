package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:            DefaultMongoURI,
		MongoDatabaseName:   DefaultMongoDatabaseName,
		MongoConnTimeout:    DefaultMongoConnTimeout,
		StorageBackend:      StorageMongo,
		Port:                DefaultPort,
		RateLimitRequests:   DefaultRateLimitRequests,
		RateLimitWindow:     DefaultRateLimitWindow,
		RequestTimeout:      DefaultRequestTimeout,
		ReadTimeout:         DefaultReadTimeout,
		WriteTimeout:        DefaultWriteTimeout,
		IdleTimeout:         DefaultIdleTimeout,
		ShutdownTimeout:     DefaultShutdownTimeout,
		TokenTimeZone:       DefaultTokenTimeZone,
		TokenDayCutoverHour: DefaultTokenDayCutoverHour,
		TokenEventsTopic:    DefaultTokenEventsTopic,
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Location != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Location)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad port", func(c *Config) { c.Port = "99999" }, "Port must be between"},
		{"bad mongo uri", func(c *Config) { c.MongoURI = "postgres://x:y@host" }, "MongoURI must start with"},
		{"bad backend", func(c *Config) { c.StorageBackend = "redis" }, "StorageBackend must be one of"},
		{"bad zone", func(c *Config) { c.TokenTimeZone = "Mars/Olympus" }, "TokenTimeZone must be a valid"},
		{"bad cutover", func(c *Config) { c.TokenDayCutoverHour = 24 }, "TokenDayCutoverHour must be between"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "RequestTimeout must be positive"},
		{"kafka without topic", func(c *Config) { c.KafkaEnabled = true; c.TokenEventsTopic = "" }, "TokenEventsTopic cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidate_MemoryBackendSkipsMongo(t *testing.T) {
	cfg := validConfig()
	cfg.StorageBackend = StorageMemory
	cfg.MongoURI = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory backend should not require mongo settings: %v", err)
	}
	if cfg.UsesMongo() {
		t.Error("memory backend should not use mongo")
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:secret@db:27017")
	if strings.Contains(got, "secret") {
		t.Errorf("credentials leaked: %s", got)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("MQ_TEST_BOOL", "true")
	t.Setenv("MQ_TEST_DUR", "250ms")
	t.Setenv("MQ_TEST_NUM", "not-a-number")

	if !getEnvBool("MQ_TEST_BOOL", false) {
		t.Error("expected true")
	}
	if d := getEnvDuration("MQ_TEST_DUR", time.Second); d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", d)
	}
	if n := getEnvNum("MQ_TEST_NUM", 7); n != 7 {
		t.Errorf("expected fallback 7, got %d", n)
	}
}

func TestValidate_SeedFileNeedsMemoryBackend(t *testing.T) {
	cfg := validConfig()
	cfg.MemorySeedFile = "seed.json"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MemorySeedFile") {
		t.Fatalf("expected seed file error for mongo backend, got %v", err)
	}

	cfg.StorageBackend = StorageMemory
	if err := cfg.Validate(); err != nil {
		t.Fatalf("seed file should be accepted with memory backend: %v", err)
	}
}
