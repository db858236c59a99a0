package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Checks(t *testing.T) {
	tests := []struct {
		name  string
		check func(cv *ConfigValidator)
		fails bool
	}{
		{"Required empty", func(cv *ConfigValidator) { cv.Required("Addr", "") }, true},
		{"Required set", func(cv *ConfigValidator) { cv.Required("Addr", ":8080") }, false},
		{"Positive zero", func(cv *ConfigValidator) { cv.Positive("Workers", 0) }, true},
		{"Positive one", func(cv *ConfigValidator) { cv.Positive("Workers", 1) }, false},
		{"NonNegative negative", func(cv *ConfigValidator) { cv.NonNegative("MaxExpansions", -1) }, true},
		{"NonNegative zero", func(cv *ConfigValidator) { cv.NonNegative("MaxExpansions", 0) }, false},
		{"RangeInt below", func(cv *ConfigValidator) { cv.RangeInt("Port", 0, 1, 65535) }, true},
		{"RangeInt above", func(cv *ConfigValidator) { cv.RangeInt("Port", 70000, 1, 65535) }, true},
		{"RangeInt inside", func(cv *ConfigValidator) { cv.RangeInt("Port", 8080, 1, 65535) }, false},
		{"MinDuration below", func(cv *ConfigValidator) { cv.MinDuration("Timeout", time.Millisecond, 10*time.Millisecond) }, true},
		{"MinDuration at", func(cv *ConfigValidator) { cv.MinDuration("Timeout", 10*time.Millisecond, 10*time.Millisecond) }, false},
		{"NonNegativeFloat negative", func(cv *ConfigValidator) { cv.NonNegativeFloat("Penalty", -0.5) }, true},
		{"NonNegativeFloat zero", func(cv *ConfigValidator) { cv.NonNegativeFloat("Penalty", 0) }, false},
		{"OneOf miss", func(cv *ConfigValidator) { cv.OneOf("Strategy", "bfs", "astar", "dijkstra") }, true},
		{"OneOf hit", func(cv *ConfigValidator) { cv.OneOf("Strategy", "astar", "astar", "dijkstra") }, false},
		{"Custom error", func(cv *ConfigValidator) { cv.Custom("Zone", func() error { return errors.New("bad zone") }) }, true},
		{"Custom nil", func(cv *ConfigValidator) { cv.Custom("Zone", func() error { return nil }) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			tt.check(cv)
			if cv.HasErrors() != tt.fails {
				t.Errorf("HasErrors() = %v, want %v (errors: %v)", cv.HasErrors(), tt.fails, cv.Errors())
			}
		})
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("Replication")
	cv.When(false, func(cv *ConfigValidator) {
		cv.Required("Address", "")
	})
	if cv.HasErrors() {
		t.Error("Expected skipped validations to record nothing")
	}

	cv.When(true, func(cv *ConfigValidator) {
		cv.Required("Address", "")
	})
	if !cv.HasErrors() {
		t.Error("Expected conditional validation to fail")
	}
}

func TestConfigValidator_ValidateJoinsAll(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := NewConfigValidator("Routing").
		Positive("Workers", 0).
		OneOf("Strategy", "bfs", "astar", "dijkstra").
		Custom("Zone", func() error { return sentinel }).
		Validate()

	if err == nil {
		t.Fatal("Expected combined error")
	}
	for _, want := range []string{"Routing.Workers", "Routing.Strategy", "Routing.Zone"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
	if !errors.Is(err, sentinel) {
		t.Error("Expected Custom errors to stay wrapped")
	}
}

func TestConfigValidator_NoErrors(t *testing.T) {
	if err := NewConfigValidator("Server").Required("Addr", ":8080").Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestDefaults(t *testing.T) {
	if got := DefaultOr("", "UTC"); got != "UTC" {
		t.Errorf("DefaultOr(\"\") = %q", got)
	}
	if got := DefaultOr("Europe/Berlin", "UTC"); got != "Europe/Berlin" {
		t.Errorf("DefaultOr(set) = %q", got)
	}
	if got := DefaultOrDuration(0, time.Second); got != time.Second {
		t.Errorf("DefaultOrDuration(0) = %v", got)
	}
	if got := DefaultOrDuration(time.Minute, time.Second); got != time.Minute {
		t.Errorf("DefaultOrDuration(1m) = %v", got)
	}
}
