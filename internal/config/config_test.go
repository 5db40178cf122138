package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xorshift.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	conf, err := Load("test", []string{"-c", filepath.Join(t.TempDir(), "absent.yml")})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if conf != Default() {
		t.Fatalf("expected defaults, got %+v", conf)
	}
}

func TestLoadFileThenFlags(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9000"
store:
  backend: redis
redis:
  host: cache
  port: 6380
  prefix: "seq:"
telemetry:
  interval: 3s
log:
  level: debug
`)

	conf, err := Load("test", []string{"-c", path, "-redis-port", "7000", "-log-format", "json"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if conf.Server.Address != ":9000" {
		t.Fatalf("address mismatch: got %q", conf.Server.Address)
	}
	if conf.Store.Backend != BackendRedis {
		t.Fatalf("backend mismatch: got %q", conf.Store.Backend)
	}
	if conf.Redis.Addr() != "cache:7000" {
		t.Fatalf("redis addr mismatch: got %q", conf.Redis.Addr())
	}
	if conf.Redis.Prefix != "seq:" {
		t.Fatalf("prefix mismatch: got %q", conf.Redis.Prefix)
	}
	if conf.Redis.PoolSize != 10 {
		t.Fatalf("unset keys should keep defaults, pool size got %d", conf.Redis.PoolSize)
	}
	if conf.Telemetry.Interval != 3*time.Second {
		t.Fatalf("interval mismatch: got %v", conf.Telemetry.Interval)
	}
	if conf.Log.Level != "debug" || conf.Log.Format != "json" {
		t.Fatalf("log mismatch: %+v", conf.Log)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: etcd\n")
	if _, err := Load("test", []string{"-c", path}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [\n")
	if _, err := Load("test", []string{"-c", path}); err == nil {
		t.Fatal("expected parse error")
	}
}
