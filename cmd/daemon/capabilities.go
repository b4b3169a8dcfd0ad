// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/capability"
	"github.com/elroyic/Podcast-Generator-sub001/internal/config"
	"github.com/elroyic/Podcast-Generator-sub001/internal/episode"
	"github.com/elroyic/Podcast-Generator-sub001/internal/health"
)

// buildCapabilities resolves the capability endpoints from config. An empty
// URL selects the offline stub for that capability, which keeps the daemon
// runnable end to end without any model containers.
func buildCapabilities(cfg config.AppConfig) (caps episode.Capabilities, light, heavy capability.Reviewer, probers []health.Prober) {
	timeout := cfg.CapabilityTimeout

	addProber := func(c *capability.Client) {
		probers = append(probers, c)
	}

	if cfg.LightReviewerURL != "" {
		r := capability.NewHTTPReviewer("light-reviewer", cfg.LightReviewerURL, timeout)
		addProber(r.Client)
		light = r
	} else {
		light = offlineReviewer(0.8)
	}
	if cfg.HeavyReviewerURL != "" {
		r := capability.NewHTTPReviewer("heavy-reviewer", cfg.HeavyReviewerURL, timeout)
		addProber(r.Client)
		heavy = r
	} else {
		heavy = offlineReviewer(0.95)
	}

	if cfg.WriterURL != "" {
		w := capability.NewHTTPWriter(cfg.WriterURL, timeout)
		addProber(w.Client)
		caps.Writer = w
	} else {
		caps.Writer = offlineWriter()
	}
	if cfg.ScriptWriterURL != "" {
		sw := capability.NewHTTPScriptWriter(cfg.ScriptWriterURL, timeout)
		addProber(sw.Client)
		caps.Script = sw
	} else {
		caps.Script = offlineScriptWriter()
	}
	if cfg.EditorURL != "" {
		e := capability.NewHTTPEditor(cfg.EditorURL, timeout)
		addProber(e.Client)
		caps.Editor = e
	} else {
		caps.Editor = offlineEditor()
	}
	if cfg.MetadataURL != "" {
		m := capability.NewHTTPMetadataWriter(cfg.MetadataURL, timeout)
		addProber(m.Client)
		caps.Metadata = m
	} else {
		caps.Metadata = offlineMetadataWriter()
	}
	if cfg.TTSURL != "" {
		s := capability.NewHTTPSpeech(cfg.TTSURL, timeout)
		addProber(s.Client)
		caps.Speech = s
	} else {
		caps.Speech = offlineSpeech()
	}
	return caps, light, heavy, probers
}

func offlineReviewer(confidence float64) capability.Reviewer {
	return capability.FixedReviewer(capability.ReviewResult{
		Tags:       []string{"news"},
		Summary:    "offline review",
		Confidence: confidence,
	})
}

func offlineWriter() capability.Writer {
	return &capability.StubWriter{BriefFn: func(_ context.Context, req capability.BriefRequest) (capability.BriefResult, error) {
		return capability.BriefResult{Text: "Cover the week's items for presenter " + req.PresenterID + "."}, nil
	}}
}

func offlineScriptWriter() capability.ScriptWriter {
	return &capability.StubScriptWriter{ScriptFn: func(_ context.Context, req capability.ScriptRequest) (capability.ScriptResult, error) {
		var b strings.Builder
		for i, brief := range req.Briefs {
			fmt.Fprintf(&b, "Speaker %d: %s\n", i%2+1, brief)
		}
		if b.Len() == 0 {
			b.WriteString("Speaker 1: Welcome to the roundup.\n")
		}
		script := b.String()
		return capability.ScriptResult{
			Script:    script,
			WordCount: len(strings.Fields(script)),
		}, nil
	}}
}

func offlineEditor() capability.Editor {
	return &capability.StubEditor{EditFn: func(_ context.Context, req capability.EditRequest) (capability.EditResult, error) {
		return capability.EditResult{EditedScript: req.Script}, nil
	}}
}

func offlineMetadataWriter() capability.MetadataWriter {
	return &capability.StubMetadataWriter{MetadataFn: func(_ context.Context, req capability.MetadataRequest) (capability.MetadataResult, error) {
		return capability.MetadataResult{
			Title:       "Episode " + time.Now().UTC().Format("2006-01-02"),
			Description: "Automatically produced news roundup.",
		}, nil
	}}
}

func offlineSpeech() capability.Speech {
	return &capability.StubSpeech{SynthesizeFn: func(_ context.Context, req capability.SpeechRequest) (capability.SpeechResult, error) {
		return capability.SpeechResult{
			AudioURL:        "file:///var/lib/podgen/audio/" + req.EpisodeID + ".mp3",
			DurationSeconds: len(strings.Fields(req.Script)) / 2,
			ByteSize:        int64(len(req.Script)) * 128,
			Format:          "mp3",
		}, nil
	}}
}
