package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalYAMLParsesValue(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`"5m30s"`), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d.Duration != 5*time.Minute+30*time.Second {
		t.Fatalf("Duration = %s, want 5m30s", d.Duration)
	}
}

func TestDurationUnmarshalYAMLEmptyStringLeavesZeroValue(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`""`), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d.Duration != 0 {
		t.Fatalf("Duration = %s, want 0", d.Duration)
	}
}

func TestDurationUnmarshalYAMLRejectsInvalidValue(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`"not-a-duration"`), &d); err == nil {
		t.Fatalf("expected an error for an invalid duration string")
	}
}
