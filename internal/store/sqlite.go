// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	_ "modernc.org/sqlite" // pure Go driver
)

// SQLiteConfig defines SQLite operational parameters.
type SQLiteConfig struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 25,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS feeds (
	id             TEXT PRIMARY KEY,
	source_url     TEXT NOT NULL,
	kind           TEXT NOT NULL,
	active         INTEGER NOT NULL,
	last_polled_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS articles (
	id            TEXT PRIMARY KEY,
	feed_id       TEXT NOT NULL,
	title         TEXT NOT NULL,
	url           TEXT NOT NULL,
	content       TEXT NOT NULL,
	published_at  INTEGER NOT NULL DEFAULT 0,
	fingerprint   TEXT NOT NULL,
	review_tier   TEXT NOT NULL DEFAULT 'NONE',
	tags          TEXT NOT NULL DEFAULT '[]',
	summary       TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0,
	collection_id TEXT NOT NULL DEFAULT '',
	processed_at  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_articles_collection ON articles(collection_id);
CREATE TABLE IF NOT EXISTS groups (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	presenter_ids   TEXT NOT NULL DEFAULT '[]',
	writer_id       TEXT NOT NULL DEFAULT '',
	feed_ids        TEXT NOT NULL DEFAULT '[]',
	tag_filter      TEXT NOT NULL DEFAULT '[]',
	min_articles    INTEGER NOT NULL,
	cadence_bucket  TEXT NOT NULL,
	last_episode_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS collections (
	id         TEXT PRIMARY KEY,
	group_id   TEXT NOT NULL,
	status     TEXT NOT NULL,
	item_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_collections_group_status ON collections(group_id, status);
CREATE TABLE IF NOT EXISTS episodes (
	id                     TEXT PRIMARY KEY,
	group_id               TEXT NOT NULL,
	collection_snapshot_id TEXT NOT NULL DEFAULT '',
	status                 TEXT NOT NULL,
	script                 TEXT NOT NULL DEFAULT '',
	title                  TEXT NOT NULL DEFAULT '',
	description            TEXT NOT NULL DEFAULT '',
	duration_seconds       INTEGER NOT NULL DEFAULT 0,
	reason                 TEXT NOT NULL DEFAULT '',
	reason_detail          TEXT NOT NULL DEFAULT '',
	degraded               INTEGER NOT NULL DEFAULT 0,
	correlation_id         TEXT NOT NULL DEFAULT '',
	created_at             INTEGER NOT NULL,
	updated_at             INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_episodes_status ON episodes(status);
CREATE INDEX IF NOT EXISTS idx_episodes_group ON episodes(group_id);
CREATE TABLE IF NOT EXISTS audio_files (
	id               TEXT PRIMARY KEY,
	episode_id       TEXT NOT NULL UNIQUE,
	url              TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	byte_size        INTEGER NOT NULL,
	format           TEXT NOT NULL,
	created_at       INTEGER NOT NULL
);
`

// SQLiteStore persists the relational entities in a single SQLite file.
// WAL mode and busy_timeout are applied through the DSN so every pooled
// connection carries them.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(dbPath string, cfg SQLiteConfig) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate failed: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func marshalJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalStrings(raw string) []string {
	var out []string
	if raw == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func (s *SQLiteStore) PutFeed(ctx context.Context, f model.Feed) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (id, source_url, kind, active, last_polled_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_url = excluded.source_url,
			kind = excluded.kind,
			active = excluded.active`,
		f.ID, f.SourceURL, string(f.Kind), f.Active, unixOrZero(f.LastPolledAt))
	if err != nil {
		return fmt.Errorf("sqlite: put feed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFeed(ctx context.Context, id string) (model.Feed, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_url, kind, active, last_polled_at FROM feeds WHERE id = ?`, id)
	return scanFeed(row)
}

func scanFeed(row *sql.Row) (model.Feed, error) {
	var f model.Feed
	var kind string
	var polled int64
	err := row.Scan(&f.ID, &f.SourceURL, &kind, &f.Active, &polled)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Feed{}, ErrNotFound
	}
	if err != nil {
		return model.Feed{}, fmt.Errorf("sqlite: scan feed: %w", err)
	}
	f.Kind = model.FeedKind(kind)
	f.LastPolledAt = timeOrZero(polled)
	return f, nil
}

func (s *SQLiteStore) ListFeeds(ctx context.Context) ([]model.Feed, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_url, kind, active, last_polled_at FROM feeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list feeds: %w", err)
	}
	defer rows.Close()

	var out []model.Feed
	for rows.Next() {
		var f model.Feed
		var kind string
		var polled int64
		if err := rows.Scan(&f.ID, &f.SourceURL, &kind, &f.Active, &polled); err != nil {
			return nil, fmt.Errorf("sqlite: scan feed: %w", err)
		}
		f.Kind = model.FeedKind(kind)
		f.LastPolledAt = timeOrZero(polled)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) TouchFeedPolled(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET last_polled_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("sqlite: touch feed: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) InsertArticle(ctx context.Context, a model.Article) error {
	// Zero tier rows persist as the explicit NONE so the guarded review
	// update matches them.
	if a.ReviewTier == "" {
		a.ReviewTier = model.TierNone
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (id, feed_id, title, url, content, published_at,
			fingerprint, review_tier, tags, summary, confidence, collection_id, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.FeedID, a.Title, a.URL, a.Content, unixOrZero(a.PublishedAt),
		a.Fingerprint, string(a.ReviewTier), marshalJSON(a.Tags), a.Summary,
		a.Confidence, a.CollectionID, unixOrZero(a.ProcessedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("sqlite: insert article: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetArticle(ctx context.Context, id string) (model.Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, feed_id, title, url, content, published_at, fingerprint,
			review_tier, tags, summary, confidence, collection_id, processed_at
		FROM articles WHERE id = ?`, id)
	var a model.Article
	var tier, tags string
	var published, processed int64
	err := row.Scan(&a.ID, &a.FeedID, &a.Title, &a.URL, &a.Content, &published,
		&a.Fingerprint, &tier, &tags, &a.Summary, &a.Confidence, &a.CollectionID, &processed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Article{}, ErrNotFound
	}
	if err != nil {
		return model.Article{}, fmt.Errorf("sqlite: scan article: %w", err)
	}
	a.ReviewTier = model.ReviewTier(tier)
	a.Tags = unmarshalStrings(tags)
	a.PublishedAt = timeOrZero(published)
	a.ProcessedAt = timeOrZero(processed)
	return a, nil
}

func (s *SQLiteStore) SetArticleReview(ctx context.Context, id string, out ReviewOutcome) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles
		SET review_tier = ?, tags = ?, summary = ?, confidence = ?, processed_at = ?
		WHERE id = ? AND review_tier = ?`,
		string(out.Tier), marshalJSON(out.Tags), out.Summary, out.Confidence,
		time.Now().Unix(), id, string(model.TierNone))
	if err != nil {
		return fmt.Errorf("sqlite: set review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing row from an already-reviewed one.
		if _, gerr := s.GetArticle(ctx, id); errors.Is(gerr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *SQLiteStore) AssignArticleCollection(ctx context.Context, articleID, collectionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET collection_id = ?
		WHERE id = ? AND collection_id = ''`,
		collectionID, articleID)
	if err != nil {
		return fmt.Errorf("sqlite: assign collection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, gerr := s.GetArticle(ctx, articleID); errors.Is(gerr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *SQLiteStore) ListArticlesByCollection(ctx context.Context, collectionID string) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, feed_id, title, url, content, published_at, fingerprint,
			review_tier, tags, summary, confidence, collection_id, processed_at
		FROM articles WHERE collection_id = ? ORDER BY id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list articles: %w", err)
	}
	defer rows.Close()

	var out []model.Article
	for rows.Next() {
		var a model.Article
		var tier, tags string
		var published, processed int64
		if err := rows.Scan(&a.ID, &a.FeedID, &a.Title, &a.URL, &a.Content, &published,
			&a.Fingerprint, &tier, &tags, &a.Summary, &a.Confidence, &a.CollectionID, &processed); err != nil {
			return nil, fmt.Errorf("sqlite: scan article: %w", err)
		}
		a.ReviewTier = model.ReviewTier(tier)
		a.Tags = unmarshalStrings(tags)
		a.PublishedAt = timeOrZero(published)
		a.ProcessedAt = timeOrZero(processed)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PutGroup(ctx context.Context, g model.Group) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (id, name, presenter_ids, writer_id, feed_ids,
			tag_filter, min_articles, cadence_bucket, last_episode_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			presenter_ids = excluded.presenter_ids,
			writer_id = excluded.writer_id,
			feed_ids = excluded.feed_ids,
			tag_filter = excluded.tag_filter,
			min_articles = excluded.min_articles,
			cadence_bucket = excluded.cadence_bucket`,
		g.ID, g.Name, marshalJSON(g.PresenterIDs), g.WriterID, marshalJSON(g.FeedIDs),
		marshalJSON(g.TagFilter), g.MinArticles, string(g.CadenceBucket), unixOrZero(g.LastEpisodeAt))
	if err != nil {
		return fmt.Errorf("sqlite: put group: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (model.Group, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, presenter_ids, writer_id, feed_ids, tag_filter,
			min_articles, cadence_bucket, last_episode_at
		FROM groups WHERE id = ?`, id)
	var g model.Group
	var presenters, feeds, filter, bucket string
	var lastEp int64
	err := row.Scan(&g.ID, &g.Name, &presenters, &g.WriterID, &feeds, &filter,
		&g.MinArticles, &bucket, &lastEp)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Group{}, ErrNotFound
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("sqlite: scan group: %w", err)
	}
	g.PresenterIDs = unmarshalStrings(presenters)
	g.FeedIDs = unmarshalStrings(feeds)
	g.TagFilter = unmarshalStrings(filter)
	g.CadenceBucket = model.CadenceBucket(bucket)
	g.LastEpisodeAt = timeOrZero(lastEp)
	return g, nil
}

func (s *SQLiteStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, presenter_ids, writer_id, feed_ids, tag_filter,
			min_articles, cadence_bucket, last_episode_at
		FROM groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list groups: %w", err)
	}
	defer rows.Close()

	var out []model.Group
	for rows.Next() {
		var g model.Group
		var presenters, feeds, filter, bucket string
		var lastEp int64
		if err := rows.Scan(&g.ID, &g.Name, &presenters, &g.WriterID, &feeds, &filter,
			&g.MinArticles, &bucket, &lastEp); err != nil {
			return nil, fmt.Errorf("sqlite: scan group: %w", err)
		}
		g.PresenterIDs = unmarshalStrings(presenters)
		g.FeedIDs = unmarshalStrings(feeds)
		g.TagFilter = unmarshalStrings(filter)
		g.CadenceBucket = model.CadenceBucket(bucket)
		g.LastEpisodeAt = timeOrZero(lastEp)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetGroupLastEpisode(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE groups SET last_episode_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("sqlite: set last episode: %w", err)
	}
	return requireOneRow(res)
}

func (s *SQLiteStore) InsertCollection(ctx context.Context, c model.Collection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if c.Status == model.CollectionBuilding || c.Status == model.CollectionReady {
		var n int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM collections WHERE group_id = ? AND status = ?`,
			c.GroupID, string(c.Status)).Scan(&n)
		if err != nil {
			return fmt.Errorf("sqlite: uniqueness check: %w", err)
		}
		if n > 0 {
			return ErrConflict
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (id, group_id, status, item_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.GroupID, string(c.Status), c.ItemCount, c.CreatedAt.Unix(), unixOrZero(c.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("sqlite: insert collection: %w", err)
	}
	return tx.Commit()
}

func scanCollection(sc interface{ Scan(...any) error }) (model.Collection, error) {
	var c model.Collection
	var status string
	var created, updated int64
	err := sc.Scan(&c.ID, &c.GroupID, &status, &c.ItemCount, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Collection{}, ErrNotFound
	}
	if err != nil {
		return model.Collection{}, fmt.Errorf("sqlite: scan collection: %w", err)
	}
	c.Status = model.CollectionStatus(status)
	c.CreatedAt = timeOrZero(created)
	c.UpdatedAt = timeOrZero(updated)
	return c, nil
}

func (s *SQLiteStore) GetCollection(ctx context.Context, id string) (model.Collection, error) {
	return scanCollection(s.db.QueryRowContext(ctx, `
		SELECT id, group_id, status, item_count, created_at, updated_at
		FROM collections WHERE id = ?`, id))
}

func (s *SQLiteStore) UpdateCollection(ctx context.Context, id string, fn func(*model.Collection) error) (model.Collection, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Collection{}, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := scanCollection(tx.QueryRowContext(ctx, `
		SELECT id, group_id, status, item_count, created_at, updated_at
		FROM collections WHERE id = ?`, id))
	if err != nil {
		return model.Collection{}, err
	}
	if err := fn(&c); err != nil {
		return model.Collection{}, err
	}
	if c.Status == model.CollectionBuilding || c.Status == model.CollectionReady {
		var n int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM collections WHERE group_id = ? AND status = ? AND id != ?`,
			c.GroupID, string(c.Status), c.ID).Scan(&n)
		if err != nil {
			return model.Collection{}, fmt.Errorf("sqlite: uniqueness check: %w", err)
		}
		if n > 0 {
			return model.Collection{}, ErrConflict
		}
	}
	c.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE collections SET status = ?, item_count = ?, updated_at = ? WHERE id = ?`,
		string(c.Status), c.ItemCount, c.UpdatedAt.Unix(), c.ID)
	if err != nil {
		return model.Collection{}, fmt.Errorf("sqlite: update collection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Collection{}, fmt.Errorf("sqlite: commit: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) FindCollection(ctx context.Context, groupID string, status model.CollectionStatus) (model.Collection, error) {
	return scanCollection(s.db.QueryRowContext(ctx, `
		SELECT id, group_id, status, item_count, created_at, updated_at
		FROM collections WHERE group_id = ? AND status = ? LIMIT 1`,
		groupID, string(status)))
}

func (s *SQLiteStore) ListCollectionsByStatus(ctx context.Context, status model.CollectionStatus) ([]model.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, status, item_count, created_at, updated_at
		FROM collections WHERE status = ? ORDER BY id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("sqlite: list collections: %w", err)
	}
	defer rows.Close()

	var out []model.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountCollectionsByStatus(ctx context.Context, status model.CollectionStatus) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count collections: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) InsertEpisode(ctx context.Context, e model.Episode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, group_id, collection_snapshot_id, status, script,
			title, description, duration_seconds, reason, reason_detail, degraded,
			correlation_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GroupID, e.CollectionSnapshotID, string(e.Status), e.Script,
		e.Title, e.Description, e.DurationSeconds, string(e.Reason), e.ReasonDetail,
		e.Degraded, e.CorrelationID, e.CreatedAt.Unix(), unixOrZero(e.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("sqlite: insert episode: %w", err)
	}
	return nil
}

func scanEpisode(sc interface{ Scan(...any) error }) (model.Episode, error) {
	var e model.Episode
	var status, reason string
	var created, updated int64
	err := sc.Scan(&e.ID, &e.GroupID, &e.CollectionSnapshotID, &status, &e.Script,
		&e.Title, &e.Description, &e.DurationSeconds, &reason, &e.ReasonDetail,
		&e.Degraded, &e.CorrelationID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Episode{}, ErrNotFound
	}
	if err != nil {
		return model.Episode{}, fmt.Errorf("sqlite: scan episode: %w", err)
	}
	e.Status = model.EpisodeStatus(status)
	e.Reason = model.ReasonCode(reason)
	e.CreatedAt = timeOrZero(created)
	e.UpdatedAt = timeOrZero(updated)
	return e, nil
}

const episodeColumns = `id, group_id, collection_snapshot_id, status, script,
	title, description, duration_seconds, reason, reason_detail, degraded,
	correlation_id, created_at, updated_at`

func (s *SQLiteStore) GetEpisode(ctx context.Context, id string) (model.Episode, error) {
	return scanEpisode(s.db.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id))
}

func (s *SQLiteStore) UpdateEpisode(ctx context.Context, id string, fn func(*model.Episode) error) (model.Episode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Episode{}, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	e, err := scanEpisode(tx.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id))
	if err != nil {
		return model.Episode{}, err
	}
	if err := fn(&e); err != nil {
		return model.Episode{}, err
	}
	e.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE episodes SET status = ?, script = ?, title = ?, description = ?,
			duration_seconds = ?, reason = ?, reason_detail = ?, degraded = ?,
			collection_snapshot_id = ?, updated_at = ?
		WHERE id = ?`,
		string(e.Status), e.Script, e.Title, e.Description, e.DurationSeconds,
		string(e.Reason), e.ReasonDetail, e.Degraded, e.CollectionSnapshotID,
		e.UpdatedAt.Unix(), e.ID)
	if err != nil {
		return model.Episode{}, fmt.Errorf("sqlite: update episode: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Episode{}, fmt.Errorf("sqlite: commit: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListEpisodesByStatus(ctx context.Context, status model.EpisodeStatus) ([]model.Episode, error) {
	return s.listEpisodes(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE status = ? ORDER BY id`, string(status))
}

func (s *SQLiteStore) ListEpisodesByGroup(ctx context.Context, groupID string) ([]model.Episode, error) {
	return s.listEpisodes(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE group_id = ? ORDER BY id`, groupID)
}

func (s *SQLiteStore) listEpisodes(ctx context.Context, query string, arg any) ([]model.Episode, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list episodes: %w", err)
	}
	defer rows.Close()

	var out []model.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertAudioFile(ctx context.Context, af model.AudioFile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audio_files (id, episode_id, url, duration_seconds, byte_size, format, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		af.ID, af.EpisodeID, af.URL, af.DurationSeconds, af.ByteSize, af.Format, af.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("sqlite: insert audio file: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAudioFileByEpisode(ctx context.Context, episodeID string) (model.AudioFile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, episode_id, url, duration_seconds, byte_size, format, created_at
		FROM audio_files WHERE episode_id = ?`, episodeID)
	var af model.AudioFile
	var created int64
	err := row.Scan(&af.ID, &af.EpisodeID, &af.URL, &af.DurationSeconds, &af.ByteSize, &af.Format, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AudioFile{}, ErrNotFound
	}
	if err != nil {
		return model.AudioFile{}, fmt.Errorf("sqlite: scan audio file: %w", err)
	}
	af.CreatedAt = timeOrZero(created)
	return af, nil
}

// isUniqueViolation matches SQLite constraint errors without importing the
// driver's internal error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
