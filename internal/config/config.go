// SPDX-License-Identifier: MIT

// Package config loads runtime configuration from the environment and an
// optional YAML seed file. Environment wins; defaults follow the recognized
// keys documented in the operator guide.
package config

import (
	"fmt"
	"time"
)

// AppConfig is the resolved daemon configuration.
type AppConfig struct {
	// HTTP admin surface
	ListenAddr string

	// Backends. Empty RedisAddr selects the in-memory fingerprint/lease
	// backends (single-node mode).
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string // empty selects the in-memory relational store
	BadgerPath    string // empty selects the in-memory snapshot store
	SeedFile      string // optional YAML file declaring feeds and groups

	// Deduplication
	FingerprintTTL time.Duration
	DedupEnabled   bool

	// Leases
	LeaseTTL time.Duration

	// Review cascade - initial values; live-configurable afterwards
	LightConfThreshold float64
	HeavyConfThreshold float64

	// Collections and cadence
	MinArticlesPerCollection int
	CadenceTick              time.Duration
	CollectionMaxAge         time.Duration

	// Review queue
	ReviewConcurrency int
	QueueCapacity     int
	PauseBackoff      time.Duration

	// External capabilities
	CapabilityTimeout time.Duration
	LightReviewerURL  string
	HeavyReviewerURL  string
	WriterURL         string
	ScriptWriterURL   string
	EditorURL         string
	MetadataURL       string
	TTSURL            string

	// Episode generation
	TargetDurationMinutes int

	// Episode reaper
	ReaperInterval time.Duration
	ReaperGrace    time.Duration

	// Feed poller
	PollInterval time.Duration
	PollRate     float64 // upstream fetches per second
}

// FromEnv resolves the configuration from the process environment.
func FromEnv() AppConfig {
	return AppConfig{
		ListenAddr: ParseString("LISTEN_ADDR", ":8080"),

		RedisAddr:     ParseString("REDIS_ADDR", ""),
		RedisPassword: ParseString("REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("REDIS_DB", 0),
		SQLitePath:    ParseString("SQLITE_PATH", ""),
		BadgerPath:    ParseString("BADGER_PATH", ""),
		SeedFile:      ParseString("SEED_FILE", ""),

		FingerprintTTL: ParseSeconds("FINGERPRINT_TTL_SECONDS", 72*time.Hour),
		DedupEnabled:   ParseBool("DEDUP_ENABLED", true),

		LeaseTTL: ParseSeconds("LEASE_TTL_SECONDS", 2*time.Hour),

		LightConfThreshold: ParseFloat("LIGHT_CONF_THRESHOLD", 0.75),
		HeavyConfThreshold: ParseFloat("HEAVY_CONF_THRESHOLD", 0.5),

		MinArticlesPerCollection: ParseInt("MIN_ARTICLES_PER_COLLECTION", 3),
		CadenceTick:              ParseSeconds("CADENCE_TICK_SECONDS", 30*time.Second),
		CollectionMaxAge:         ParseSeconds("COLLECTION_MAX_AGE_SECONDS", 48*time.Hour),

		ReviewConcurrency: ParseInt("REVIEW_CONCURRENCY", 4),
		QueueCapacity:     ParseInt("REVIEW_QUEUE_CAPACITY", 1024),
		PauseBackoff:      ParseSeconds("PAUSE_BACKOFF_SECONDS", 5*time.Second),

		CapabilityTimeout: ParseSeconds("CAPABILITY_TIMEOUT_SECONDS", 180*time.Second),
		LightReviewerURL:  ParseString("LIGHT_REVIEWER_URL", ""),
		HeavyReviewerURL:  ParseString("HEAVY_REVIEWER_URL", ""),
		WriterURL:         ParseString("WRITER_URL", ""),
		ScriptWriterURL:   ParseString("SCRIPT_WRITER_URL", ""),
		EditorURL:         ParseString("EDITOR_URL", ""),
		MetadataURL:       ParseString("METADATA_URL", ""),
		TTSURL:            ParseString("TTS_URL", ""),

		TargetDurationMinutes: ParseInt("EPISODE_TARGET_MINUTES", 10),

		ReaperInterval: ParseSeconds("REAPER_INTERVAL_SECONDS", 5*time.Minute),
		ReaperGrace:    ParseSeconds("REAPER_GRACE_SECONDS", 10*time.Minute),

		PollInterval: ParseSeconds("POLL_INTERVAL_SECONDS", 5*time.Minute),
		PollRate:     ParseFloat("POLL_RATE_PER_SECOND", 2),
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c AppConfig) Validate() error {
	if c.FingerprintTTL <= 0 {
		return fmt.Errorf("config: fingerprint TTL must be positive, got %s", c.FingerprintTTL)
	}
	if c.LeaseTTL <= 0 {
		return fmt.Errorf("config: lease TTL must be positive, got %s", c.LeaseTTL)
	}
	if c.LightConfThreshold < 0 || c.LightConfThreshold > 1 {
		return fmt.Errorf("config: light confidence threshold out of [0,1]: %g", c.LightConfThreshold)
	}
	if c.HeavyConfThreshold < 0 || c.HeavyConfThreshold > 1 {
		return fmt.Errorf("config: heavy confidence threshold out of [0,1]: %g", c.HeavyConfThreshold)
	}
	if c.MinArticlesPerCollection < 1 {
		return fmt.Errorf("config: min articles per collection must be >= 1, got %d", c.MinArticlesPerCollection)
	}
	if c.ReviewConcurrency < 1 {
		return fmt.Errorf("config: review concurrency must be >= 1, got %d", c.ReviewConcurrency)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("config: review queue capacity must be >= 1, got %d", c.QueueCapacity)
	}
	return nil
}
