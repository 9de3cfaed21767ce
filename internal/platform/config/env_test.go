package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Seed   uint64 `env:"DOUDIZHU_TEST_SEED" envDefault:"7"`
	Resume bool   `env:"DOUDIZHU_TEST_RESUME"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Seed != 7 || cfg.Resume {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("DOUDIZHU_TEST_SEED", "42")
	t.Setenv("DOUDIZHU_TEST_RESUME", "true")

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Seed != 42 || !cfg.Resume {
		t.Fatalf("expected overrides, got %+v", cfg)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("DOUDIZHU_TEST_SEED", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
