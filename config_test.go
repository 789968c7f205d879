/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"vacancy policy", func(c *Config) { c.seatPolicy = "vacancy" }, false},
		{"lone tls cert", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"tls pair", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, false},
		{"port zero", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 70000 }, true},
		{"unknown policy", func(c *Config) { c.seatPolicy = "random" }, true},
		{"zero reap delay", func(c *Config) { c.reapDelay = 0 }, true},
		{"negative timeout", func(c *Config) { c.catalogTimeout = -time.Second }, true},
		{"no tmdb pages", func(c *Config) { c.tmdbPages = 0 }, true},
		{"negative rate", func(c *Config) { c.messageRate = -1 }, true},
		{"bad log level", func(c *Config) { c.logLevel = "loud" }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)

			err := cfg.validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected validate result: got %v wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("MOVIEMATCH_PORT", "9090")
	t.Setenv("MOVIEMATCH_SEAT_POLICY", "vacancy")
	t.Setenv("MOVIEMATCH_REAP_DELAY", "30s")

	cfg := &Config{}
	cmd := newCmd(cfg)

	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if cfg.port != 9090 {
		t.Fatalf("unexpected port: got %d want 9090", cfg.port)
	}
	if cfg.seatPolicy != "vacancy" {
		t.Fatalf("unexpected seat policy: got %q want %q", cfg.seatPolicy, "vacancy")
	}
	if cfg.reapDelay != 30*time.Second {
		t.Fatalf("unexpected reap delay: got %s want 30s", cfg.reapDelay)
	}
	if cfg.tmdbPages != 5 || cfg.logLevel != "info" {
		t.Fatalf("unexpected defaults: pages %d level %q", cfg.tmdbPages, cfg.logLevel)
	}
}

func TestScheme(t *testing.T) {
	cfg := testConfig()
	if got := cfg.scheme(); got != "http" {
		t.Fatalf("unexpected scheme: got %q want http", got)
	}

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	if got := cfg.scheme(); got != "https" {
		t.Fatalf("unexpected scheme: got %q want https", got)
	}
}

func TestHumanReadableSize(t *testing.T) {
	cases := map[int64]string{
		512:     "512 B",
		1500:    "1.5 kB",
		2000000: "2.0 MB",
	}

	for in, want := range cases {
		if got := humanReadableSize(in); got != want {
			t.Fatalf("unexpected size for %d: got %q want %q", in, got, want)
		}
	}
}
