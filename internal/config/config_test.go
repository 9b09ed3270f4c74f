package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PIPELINE_AUTO_SEND_THRESHOLD", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("AMQP_URL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline != DefaultPipeline() {
		t.Fatalf("pipeline = %+v, want %+v", cfg.Pipeline, DefaultPipeline())
	}
	if cfg.Redis.Addr != "" || cfg.AMQP.URL != "" {
		t.Fatal("optional sinks should default to disabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PIPELINE_AUTO_SEND_THRESHOLD", "0.75")
	t.Setenv("PIPELINE_AUTO_SEND_DELAY", "3s")
	t.Setenv("PIPELINE_SEND_LATENCY", "250ms")
	t.Setenv("GENERATION_BASE_URL", "http://copilot:8000")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.AutoSendThreshold != 0.75 || cfg.Pipeline.AutoSendDelay != 3*time.Second || cfg.Pipeline.SendLatency != 250*time.Millisecond {
		t.Fatalf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Generation.BaseURL != "http://copilot:8000" || cfg.App.Addr() != "0.0.0.0:9090" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	t.Setenv("PIPELINE_AUTO_SEND_THRESHOLD", "1.5")
	if _, err := Load(); err == nil {
		t.Fatal("expected threshold error")
	}
	t.Setenv("PIPELINE_AUTO_SEND_THRESHOLD", "high")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPipelineValidate(t *testing.T) {
	p := DefaultPipeline()
	p.SendLatency = -time.Second
	if err := p.Validate(); err == nil {
		t.Fatal("negative latency accepted")
	}
}
