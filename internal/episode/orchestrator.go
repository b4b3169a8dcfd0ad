// SPDX-License-Identifier: MIT

// Package episode drives the generation state machine: under a group
// lease, snapshot the READY collection and run brief, script, edit,
// metadata and audio synthesis, persisting each step's output before the
// next begins.
package episode

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/elroyic/Podcast-Generator-sub001/internal/capability"
	"github.com/elroyic/Podcast-Generator-sub001/internal/lease"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// fallbackBrief substitutes a presenter brief when the writer capability
// fails; brief failures never kill the episode.
const fallbackBrief = "No presenter brief available; cover the collection highlights in a neutral tone."

// Capabilities bundles the external generation services.
type Capabilities struct {
	Writer   capability.Writer
	Script   capability.ScriptWriter
	Editor   capability.Editor
	Metadata capability.MetadataWriter
	Speech   capability.Speech
}

// Orchestrator serializes episode generation per group via the lease
// manager.
type Orchestrator struct {
	st    store.Store
	snaps store.SnapshotStore
	caps  Capabilities

	leases            lease.Manager
	leaseTTL          time.Duration
	targetDurationMin int

	// done clears the cadence in-flight marker; may be nil.
	done func(groupID string)

	now func() time.Time
}

func NewOrchestrator(st store.Store, snaps store.SnapshotStore, leases lease.Manager, caps Capabilities, leaseTTL time.Duration, targetDurationMin int) *Orchestrator {
	return &Orchestrator{
		st:                st,
		snaps:             snaps,
		caps:              caps,
		leases:            leases,
		leaseTTL:          leaseTTL,
		targetDurationMin: targetDurationMin,
		now:               time.Now,
	}
}

// OnDone registers the job-finished callback (cadence Done).
func (o *Orchestrator) OnDone(fn func(groupID string)) { o.done = fn }

// Generate runs one job. The returned episode reflects the terminal row;
// a zero episode with nil error means the job was abandoned on lease
// contention.
func (o *Orchestrator) Generate(ctx context.Context, ev model.GenerateEpisodeEvent) (model.Episode, error) {
	if ev.CorrelationID != "" {
		ctx = log.ContextWithCorrelationID(ctx, ev.CorrelationID)
	}
	logger := log.WithComponentFromContext(ctx, "episode")
	defer func() {
		if o.done != nil {
			o.done(ev.GroupID)
		}
	}()

	owner := uuid.NewString()
	acquired, err := o.leases.Acquire(ctx, ev.GroupID, owner, o.leaseTTL)
	if err != nil {
		return model.Episode{}, fmt.Errorf("episode: lease acquire: %w", err)
	}
	if !acquired {
		metrics.IncLeaseRejected()
		logger.Info().
			Str(log.FieldGroupID, ev.GroupID).
			Msg("lease held by other, abandoning job")
		if ev.EpisodeID != "" {
			// Admin-created row must not dangle in QUEUED.
			_, _ = o.st.UpdateEpisode(ctx, ev.EpisodeID, func(e *model.Episode) error {
				e.Status = model.EpisodeFailed
				e.Reason = model.RLeaseBusy
				return nil
			})
		}
		return model.Episode{}, nil
	}
	defer func() {
		if _, rerr := o.leases.Release(context.WithoutCancel(ctx), ev.GroupID, owner); rerr != nil {
			logger.Warn().Str(log.FieldGroupID, ev.GroupID).Err(rerr).Msg("lease release failed")
		}
	}()

	start := o.now()
	ep, err := o.run(ctx, ev, owner)
	if err != nil {
		reason, detail := ClassifyReason(err)
		logger.Error().
			Str(log.FieldGroupID, ev.GroupID).
			Str(log.FieldEpisodeID, ep.ID).
			Str(log.FieldReason, string(reason)).
			Err(err).
			Msg("episode failed")
		if ep.ID != "" {
			if failed, uerr := o.st.UpdateEpisode(context.WithoutCancel(ctx), ep.ID, func(e *model.Episode) error {
				e.Status = model.EpisodeFailed
				e.Reason = reason
				e.ReasonDetail = detail
				return nil
			}); uerr == nil {
				ep = failed
			}
			metrics.IncTransition(string(model.EpisodeGenerating), string(model.EpisodeFailed))
		}
		metrics.IncEpisode("failed", string(reason))
		return ep, err
	}

	metrics.IncEpisode("completed", string(model.RNone))
	metrics.ObserveEpisode(start)
	logger.Info().
		Str(log.FieldGroupID, ev.GroupID).
		Str(log.FieldEpisodeID, ep.ID).
		Dur("elapsed", o.now().Sub(start)).
		Msg("episode completed")
	return ep, nil
}

func (o *Orchestrator) run(ctx context.Context, ev model.GenerateEpisodeEvent, owner string) (model.Episode, error) {
	logger := log.WithComponentFromContext(ctx, "episode")
	group, err := o.st.GetGroup(ctx, ev.GroupID)
	if err != nil {
		return o.adoptQueued(ctx, ev), NewReasonError(model.RNotFound, "group missing", err)
	}

	coll, err := o.st.FindCollection(ctx, group.ID, model.CollectionReady)
	if err != nil {
		return o.adoptQueued(ctx, ev), NewReasonError(model.RInsufficientContent, "no ready collection", err)
	}
	if coll.ItemCount < group.MinArticles {
		return o.adoptQueued(ctx, ev),
			NewReasonError(model.RInsufficientContent,
				fmt.Sprintf("ready collection has %d of %d articles", coll.ItemCount, group.MinArticles), nil)
	}

	snap, err := o.snapshot(ctx, coll, group.ID)
	if err != nil {
		return o.adoptQueued(ctx, ev), err
	}

	ep, err := o.openEpisode(ctx, ev, group.ID, snap.ID)
	if err != nil {
		return model.Episode{}, err
	}

	briefs := o.collectBriefs(ctx, group, snap)

	stepStart := o.now()
	scriptRes, err := o.caps.Script.Script(ctx, capability.ScriptRequest{
		GroupID:           group.ID,
		Briefs:            briefs,
		Snapshot:          snap,
		TargetDurationMin: o.targetDurationMin,
	})
	if err != nil {
		return ep, NewReasonError(model.RScriptFailed, "script capability failed", err)
	}
	metrics.ObserveEpisodeStep("script", stepStart)
	ep, err = o.st.UpdateEpisode(ctx, ep.ID, func(e *model.Episode) error {
		e.Script = scriptRes.Script
		return nil
	})
	if err != nil {
		return ep, NewReasonError(model.RPersistFailed, "persist script", err)
	}

	script := scriptRes.Script
	stepStart = o.now()
	editRes, err := o.caps.Editor.Edit(ctx, capability.EditRequest{Script: script})
	degraded := err != nil
	if degraded {
		logger.Warn().
			Str(log.FieldEpisodeID, ep.ID).
			Err(err).
			Msg("editor failed, continuing with unedited script")
	} else {
		script = editRes.EditedScript
		metrics.ObserveEpisodeStep("edit", stepStart)
	}
	ep, err = o.st.UpdateEpisode(ctx, ep.ID, func(e *model.Episode) error {
		e.Script = script
		e.Degraded = degraded
		return nil
	})
	if err != nil {
		return ep, NewReasonError(model.RPersistFailed, "persist edited script", err)
	}

	stepStart = o.now()
	metaRes, err := o.caps.Metadata.Metadata(ctx, capability.MetadataRequest{
		Script: script, GroupID: group.ID,
	})
	if err != nil {
		return ep, NewReasonError(model.RScriptFailed, "metadata capability failed", err)
	}
	metrics.ObserveEpisodeStep("metadata", stepStart)
	ep, err = o.st.UpdateEpisode(ctx, ep.ID, func(e *model.Episode) error {
		e.Title = metaRes.Title
		e.Description = metaRes.Description
		return nil
	})
	if err != nil {
		return ep, NewReasonError(model.RPersistFailed, "persist metadata", err)
	}

	stepStart = o.now()
	audioRes, err := o.caps.Speech.Synthesize(ctx, capability.SpeechRequest{
		EpisodeID:        ep.ID,
		Script:           script,
		VoiceAssignments: voiceAssignments(script, group.PresenterIDs),
	})
	if err != nil {
		return ep, NewReasonError(model.RAudioFailed, "audio synthesis failed", err)
	}
	metrics.ObserveEpisodeStep("audio", stepStart)

	audio := model.AudioFile{
		ID:              uuid.NewString(),
		EpisodeID:       ep.ID,
		URL:             audioRes.AudioURL,
		DurationSeconds: audioRes.DurationSeconds,
		ByteSize:        audioRes.ByteSize,
		Format:          audioRes.Format,
		CreatedAt:       o.now().UTC(),
	}
	if err := o.st.InsertAudioFile(ctx, audio); err != nil {
		return ep, NewReasonError(model.RPersistFailed, "persist audio file", err)
	}

	ep, err = o.st.UpdateEpisode(ctx, ep.ID, func(e *model.Episode) error {
		e.Status = model.EpisodeCompleted
		e.DurationSeconds = audioRes.DurationSeconds
		return nil
	})
	if err != nil {
		return ep, NewReasonError(model.RPersistFailed, "finalize episode", err)
	}
	metrics.IncTransition(string(model.EpisodeGenerating), string(model.EpisodeCompleted))

	if err := o.st.SetGroupLastEpisode(ctx, group.ID, o.now().UTC()); err != nil {
		logger.Warn().
			Str(log.FieldGroupID, group.ID).
			Err(err).
			Msg("last_episode_at update failed")
	}
	return ep, nil
}

// snapshot copies the collection's articles into an immutable record and
// consumes the collection. A FAILED episode afterwards does not return the
// collection to READY.
func (o *Orchestrator) snapshot(ctx context.Context, coll model.Collection, groupID string) (model.Snapshot, error) {
	articles, err := o.st.ListArticlesByCollection(ctx, coll.ID)
	if err != nil {
		return model.Snapshot{}, NewReasonError(model.RPersistFailed, "load collection articles", err)
	}
	snap := model.Snapshot{
		ID:           uuid.NewString(),
		CollectionID: coll.ID,
		GroupID:      groupID,
		Articles:     articles,
		TakenAt:      o.now().UTC(),
	}
	if err := o.snaps.PutSnapshot(ctx, snap); err != nil {
		return model.Snapshot{}, NewReasonError(model.RPersistFailed, "persist snapshot", err)
	}
	if _, err := o.st.UpdateCollection(ctx, coll.ID, func(c *model.Collection) error {
		if c.Status != model.CollectionReady {
			return NewReasonError(model.RInvariantViolation, "collection no longer ready", nil)
		}
		c.Status = model.CollectionConsumed
		return nil
	}); err != nil {
		return model.Snapshot{}, err
	}
	metrics.IncTransition(string(model.CollectionReady), string(model.CollectionConsumed))
	return snap, nil
}

// openEpisode creates the GENERATING row, or adopts the admin-created
// QUEUED row.
func (o *Orchestrator) openEpisode(ctx context.Context, ev model.GenerateEpisodeEvent, groupID, snapshotID string) (model.Episode, error) {
	if ev.EpisodeID != "" {
		ep, err := o.st.UpdateEpisode(ctx, ev.EpisodeID, func(e *model.Episode) error {
			e.Status = model.EpisodeGenerating
			e.CollectionSnapshotID = snapshotID
			return nil
		})
		if err != nil {
			return model.Episode{}, NewReasonError(model.RPersistFailed, "adopt episode row", err)
		}
		metrics.IncTransition(string(model.EpisodeQueued), string(model.EpisodeGenerating))
		return ep, nil
	}
	ep := model.Episode{
		ID:                   uuid.NewString(),
		GroupID:              groupID,
		CollectionSnapshotID: snapshotID,
		Status:               model.EpisodeGenerating,
		CorrelationID:        ev.CorrelationID,
		CreatedAt:            o.now().UTC(),
	}
	if err := o.st.InsertEpisode(ctx, ep); err != nil {
		return model.Episode{}, NewReasonError(model.RPersistFailed, "create episode row", err)
	}
	metrics.IncTransition(string(model.EpisodeQueued), string(model.EpisodeGenerating))
	return ep, nil
}

// adoptQueued returns the admin-created row (so the caller can fail it) or
// a zero episode for cadence jobs that die before the row exists.
func (o *Orchestrator) adoptQueued(ctx context.Context, ev model.GenerateEpisodeEvent) model.Episode {
	if ev.EpisodeID == "" {
		return model.Episode{}
	}
	ep, err := o.st.GetEpisode(ctx, ev.EpisodeID)
	if err != nil {
		return model.Episode{}
	}
	return ep
}

// collectBriefs gathers one brief per presenter; writer failures fall back
// per presenter instead of failing the episode.
func (o *Orchestrator) collectBriefs(ctx context.Context, group model.Group, snap model.Snapshot) []string {
	if len(group.PresenterIDs) == 0 {
		return nil
	}
	logger := log.WithComponentFromContext(ctx, "episode")
	briefs := make([]string, 0, len(group.PresenterIDs))
	stepStart := o.now()
	for _, pid := range group.PresenterIDs {
		res, err := o.caps.Writer.Brief(ctx, capability.BriefRequest{
			PresenterID: pid,
			Snapshot:    snap,
		})
		if err != nil {
			logger.Warn().
				Str(log.FieldGroupID, group.ID).
				Str("presenter_id", pid).
				Err(err).
				Msg("brief failed, using fallback")
			briefs = append(briefs, fallbackBrief)
			continue
		}
		briefs = append(briefs, res.Text)
	}
	metrics.ObserveEpisodeStep("brief", stepStart)
	return briefs
}

var speakerRe = regexp.MustCompile(`(?m)^(Speaker \d+):`)

// voiceAssignments maps each distinct "Speaker N" marker in the script to
// a presenter's voice, round-robin when the script has more speakers than
// the group has presenters.
func voiceAssignments(script string, presenterIDs []string) map[string]string {
	matches := speakerRe.FindAllStringSubmatch(script, -1)
	if len(matches) == 0 || len(presenterIDs) == 0 {
		return nil
	}
	out := make(map[string]string)
	i := 0
	for _, m := range matches {
		speaker := m[1]
		if _, ok := out[speaker]; ok {
			continue
		}
		out[speaker] = presenterIDs[i%len(presenterIDs)]
		i++
	}
	return out
}
