package main

import (
	"testing"

	"medorder/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", Download: config.DownloadConfig{MaxAttempts: 3}})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigRejectsWildcardOriginInProduction(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		AllowedOrigin: "*",
		AppEnv:        "production",
		Download:      config.DownloadConfig{MaxAttempts: 3},
	})
	if err == nil {
		t.Fatalf("expected wildcard origin to be rejected in production")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		AllowedOrigin: "https://console.medorder.test",
		Download:      config.DownloadConfig{MaxAttempts: 3},
	})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}
