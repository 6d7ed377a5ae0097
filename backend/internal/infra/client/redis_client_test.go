package infra

import (
	"context"
	"strconv"
	"testing"
	"time"

	"lf-go-app/backend/internal/config"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewDefaultRedisOptionsFromEnv(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	t.Setenv("REDIS_ENDPOINT", "127.0.0.1:6380")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "2")

	opts, err := NewDefaultRedisOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.Host != "127.0.0.1" || opts.Port != 6380 {
		t.Fatalf("unexpected host/port: %s:%d", opts.Host, opts.Port)
	}
	if opts.Password != "secret" {
		t.Fatalf("expected password to match")
	}
	if opts.DB != 2 {
		t.Fatalf("expected db=2, got %d", opts.DB)
	}
}

func TestNewDefaultRedisOptionsDefaults(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	t.Setenv("REDIS_ENDPOINT", "10.0.0.2")
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_DB", "")

	opts, err := NewDefaultRedisOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.Host != "10.0.0.2" {
		t.Fatalf("expected host 10.0.0.2, got %s", opts.Host)
	}
	if opts.Port != defaultRedisPort {
		t.Fatalf("expected default port %d, got %d", defaultRedisPort, opts.Port)
	}
	if opts.DB != defaultRedisDB {
		t.Fatalf("expected default db %d, got %d", defaultRedisDB, opts.DB)
	}
}

func TestNewDefaultRedisOptionsMissingEndpoint(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	t.Setenv("REDIS_ENDPOINT", "")

	if _, err := NewDefaultRedisOptions(); err == nil {
		t.Fatalf("expected error when endpoint missing")
	}
}

func TestNewRedisClient(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer server.Close()

	port, err := strconv.Atoi(server.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	opts := RedisOptions{
		Host:    server.Host(),
		Port:    port,
		Timeout: time.Second,
	}

	client, err := NewRedisClient(opts)
	if err != nil {
		t.Fatalf("NewRedisClient returned error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Set(ctx, "foo", "bar", 0).Err(); err != nil {
		t.Fatalf("redis set: %v", err)
	}

	val, err := client.Get(ctx, "foo").Result()
	if err != nil {
		t.Fatalf("redis get: %v", err)
	}
	if val != "bar" {
		t.Fatalf("expected value bar, got %s", val)
	}
}

func TestBuildMySQLDSN(t *testing.T) {
	cfg := MySQLConfig{
		Host:     "db.internal",
		Port:     3307,
		Username: "svc",
		Password: "pw",
		Database: "lf",
	}

	dsn, err := BuildMySQLDSN(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "svc:pw@tcp(db.internal:3307)/lf?" + defaultMySQLParams
	if dsn != want {
		t.Fatalf("dsn = %q, want %q", dsn, want)
	}

	if _, err := BuildMySQLDSN(MySQLConfig{Host: "db"}); err == nil {
		t.Fatalf("expected validation error for incomplete config")
	}
}
