// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

// SeedFile declares feeds, groups and optional reviewer settings. It is read
// at boot and re-read by the watcher on change.
type SeedFile struct {
	Feeds    []SeedFeed        `yaml:"feeds"`
	Groups   []SeedGroup       `yaml:"groups"`
	Reviewer *ReviewerSettings `yaml:"reviewer,omitempty"`
}

type SeedFeed struct {
	ID     string `yaml:"id"`
	URL    string `yaml:"url"`
	Kind   string `yaml:"kind"`
	Active *bool  `yaml:"active,omitempty"`
}

type SeedGroup struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Presenters  []string `yaml:"presenters"`
	Writer      string   `yaml:"writer"`
	Feeds       []string `yaml:"feeds"`
	Tags        []string `yaml:"tags"`
	MinArticles int      `yaml:"min_articles"`
	Cadence     string   `yaml:"cadence"`
}

// ReviewerSettings are the live-configurable cascade knobs.
type ReviewerSettings struct {
	LightThreshold      *float64 `yaml:"light_threshold,omitempty"`
	HeavyThreshold      *float64 `yaml:"heavy_threshold,omitempty"`
	PauseBackoffSeconds *int     `yaml:"pause_backoff_seconds,omitempty"`
}

// LoadSeedFile parses the YAML seed file at path.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("seed: parse %s: %w", path, err)
	}
	return &sf, nil
}

// Materialize converts the seed declarations into model entities, applying
// instance-level defaults where the file is silent.
func (sf *SeedFile) Materialize(defaultMinArticles int) ([]model.Feed, []model.Group, error) {
	feeds := make([]model.Feed, 0, len(sf.Feeds))
	for _, f := range sf.Feeds {
		if f.ID == "" || f.URL == "" {
			return nil, nil, fmt.Errorf("seed: feed requires id and url")
		}
		kind := model.FeedKind(f.Kind)
		switch kind {
		case model.FeedRSS, model.FeedAtom, model.FeedJSON:
		case "":
			kind = model.FeedRSS
		default:
			return nil, nil, fmt.Errorf("seed: feed %s: unknown kind %q", f.ID, f.Kind)
		}
		active := true
		if f.Active != nil {
			active = *f.Active
		}
		feeds = append(feeds, model.Feed{
			ID:        f.ID,
			SourceURL: f.URL,
			Kind:      kind,
			Active:    active,
		})
	}

	groups := make([]model.Group, 0, len(sf.Groups))
	for _, g := range sf.Groups {
		if g.ID == "" {
			return nil, nil, fmt.Errorf("seed: group requires id")
		}
		minArticles := g.MinArticles
		if minArticles <= 0 {
			minArticles = defaultMinArticles
		}
		cadence := model.CadenceBucket(g.Cadence)
		switch cadence {
		case model.CadenceHigh, model.CadenceMedium, model.CadenceLow, model.CadenceManual:
		case "":
			cadence = model.CadenceMedium
		default:
			return nil, nil, fmt.Errorf("seed: group %s: unknown cadence %q", g.ID, g.Cadence)
		}
		groups = append(groups, model.Group{
			ID:            g.ID,
			Name:          g.Name,
			PresenterIDs:  g.Presenters,
			WriterID:      g.Writer,
			FeedIDs:       g.Feeds,
			TagFilter:     g.Tags,
			MinArticles:   minArticles,
			CadenceBucket: cadence,
		})
	}
	return feeds, groups, nil
}

// PauseBackoff returns the configured pause backoff, or fallback when unset.
func (rs *ReviewerSettings) PauseBackoff(fallback time.Duration) time.Duration {
	if rs == nil || rs.PauseBackoffSeconds == nil {
		return fallback
	}
	return time.Duration(*rs.PauseBackoffSeconds) * time.Second
}
