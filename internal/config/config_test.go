package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, `
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Request.TimeoutMS != 30000 {
		t.Errorf("expected default timeout 30000, got %d", cfg.Request.TimeoutMS)
	}
	if cfg.Broker.ServicesExchange != "services.exchange" {
		t.Errorf("expected default exchange, got %q", cfg.Broker.ServicesExchange)
	}
	if cfg.InstanceID == "" {
		t.Errorf("expected a generated instance id")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	path := writeTemp(t, `
jwt:
  secret: "too-short"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for short jwt secret")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeTemp(t, `
jwt:
  secret: "0123456789abcdef0123456789abcdef"
broker:
  url: "amqp://file-value/"
`)
	t.Setenv("GATEWAY_BROKER_URL", "amqp://env-value/")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.URL != "amqp://env-value/" {
		t.Fatalf("expected env override to win, got %q", cfg.Broker.URL)
	}
}

func TestReplyQueueName(t *testing.T) {
	b := BrokerConfig{ReplyQueuePrefix: "gateway"}
	if got, want := b.ReplyQueueName("inst-1"), "gateway.inst-1.reply"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
