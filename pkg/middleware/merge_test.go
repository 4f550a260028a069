package middleware

import (
	"testing"
)

func TestMergeOverrideLeavesUnsetFieldsAtDefault(t *testing.T) {
	cfg := defaultRateLimitConfig()
	override := []byte(`{"strategy":"throw"}`)
	if err := mergeOverride(override, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Strategy != RateLimitThrow {
		t.Fatalf("expected overridden field to change, got %q", cfg.Strategy)
	}
	if cfg.RequestsPerSecond != 1 || cfg.Burst != 1 {
		t.Fatalf("expected unset fields to keep their defaults, got %+v", cfg)
	}
}

func TestMergeOverrideEmptyIsNoop(t *testing.T) {
	cfg := defaultRateLimitConfig()
	before := cfg
	if err := mergeOverride(nil, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg != before {
		t.Fatalf("expected nil override to leave config untouched, got %+v", cfg)
	}
}

func TestMergeOverrideRejectsInvalidJSON(t *testing.T) {
	cfg := defaultRateLimitConfig()
	if err := mergeOverride([]byte(`not json`), &cfg); err == nil {
		t.Fatal("expected invalid override JSON to error")
	}
}
