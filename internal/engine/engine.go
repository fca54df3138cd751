// Package engine implements the piece synchronization engine: a write-through
// view over the remote document store with a queued local cache and a small
// synchronous fallback mirror for degraded reads.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"piececore/internal/cache"
	"piececore/internal/fallback"
	"piececore/internal/normalize"
	"piececore/internal/opqueue"
	"piececore/internal/validate"
	"piececore/pkg/domain"
)

// UploadedImagesKey is the local store key holding the filename to image
// data mapping, persisted separately from piece records.
const UploadedImagesKey = "uploaded_images"

// Engine owns one Cache, one Queue and one fallback Store, constructed once
// at application start and injected into callers. Connectivity is sampled at
// call time; mutations fail fast with domain.ErrOffline while reads degrade
// to the fallback mirror.
type Engine struct {
	remote   domain.RemoteStore
	kv       domain.KeyValueStore
	settings domain.SettingsStore

	queue *opqueue.Queue
	cache *cache.Cache
	local *fallback.Store

	conn    domain.ConnectivityChecker
	logger  domain.Logger
	metrics domain.MetricsRecorder
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	logger    domain.Logger
	metrics   domain.MetricsRecorder
	conn      domain.ConnectivityChecker
	clock     func() time.Time
	queueOpts []opqueue.Option
}

// WithLogger sets the logger shared by the engine and its collaborators.
func WithLogger(l domain.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder observing public operations.
func WithMetrics(m domain.MetricsRecorder) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithConnectivity sets the connectivity checker sampled on every call.
func WithConnectivity(cc domain.ConnectivityChecker) Option {
	return func(c *config) {
		if cc != nil {
			c.conn = cc
		}
	}
}

// WithClock overrides the clock used for cache timestamps, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithQueueOptions forwards options to the internal operation queue.
func WithQueueOptions(opts ...opqueue.Option) Option {
	return func(c *config) { c.queueOpts = append(c.queueOpts, opts...) }
}

// New constructs an engine over the three storage collaborators.
func New(remote domain.RemoteStore, kv domain.KeyValueStore, settings domain.SettingsStore, opts ...Option) *Engine {
	cfg := config{
		logger:  domain.NopLogger{},
		metrics: domain.NopMetrics{},
		conn:    domain.AlwaysOnline,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	queueOpts := append([]opqueue.Option{opqueue.WithLogger(cfg.logger)}, cfg.queueOpts...)
	queue := opqueue.New(queueOpts...)
	return &Engine{
		remote:   remote,
		kv:       kv,
		settings: settings,
		queue:    queue,
		cache:    cache.New(kv, queue, cache.WithLogger(cfg.logger), cache.WithClock(cfg.clock)),
		local:    fallback.New(settings, fallback.WithLogger(cfg.logger)),
		conn:     cfg.conn,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
		now:      cfg.clock,
	}
}

// Online reports current connectivity.
func (e *Engine) Online() bool { return e.conn.Online() }

// Init probes the remote collection and migrates any legacy uploaded-images
// map from the simple settings store into the richer local store. Idempotent;
// an unreachable remote is tolerated when the environment reports offline.
func (e *Engine) Init(ctx context.Context) (err error) {
	defer e.observe(ctx, "init", e.now(), &err)
	if probeErr := e.remote.Probe(ctx); probeErr != nil {
		if e.conn.Online() {
			return fmt.Errorf("probe remote store: %w", probeErr)
		}
		e.logger.Info("remote probe failed while offline, continuing", "error", probeErr)
	}
	e.migrateUploadedImages(ctx)
	return nil
}

// migrateUploadedImages is the one-time move of the legacy map out of the
// settings store. Failures are logged, never fatal.
func (e *Engine) migrateUploadedImages(ctx context.Context) {
	legacy, ok := e.settings.GetItem(UploadedImagesKey)
	if !ok || legacy == "" {
		return
	}
	var parsed map[string]string
	if err := json.Unmarshal([]byte(legacy), &parsed); err != nil {
		e.logger.Error("failed to parse legacy uploaded images", "error", err)
		return
	}
	if err := e.SaveUploadedImages(ctx, parsed); err != nil {
		e.logger.Error("uploaded images migration failed", "error", err)
		return
	}
	e.settings.RemoveItem(UploadedImagesKey)
	e.logger.Info("migrated legacy uploaded images", "entries", len(parsed))
}

// GetAllPieces returns the full collection: cache hit wins, otherwise the
// remote collection is read, normalized and validated, mirrored to the
// fallback store synchronously and to the cache in the background. Offline
// or on remote failure the fallback mirror is returned. Reads never fail.
func (e *Engine) GetAllPieces(ctx context.Context) []domain.Piece {
	start := e.now()
	if cached := e.cache.Get(); cached != nil {
		e.metrics.Observe(ctx, "get_all_pieces", true, time.Since(start))
		return cached
	}
	if !e.conn.Online() {
		e.metrics.Observe(ctx, "get_all_pieces", true, time.Since(start))
		return e.local.Pieces()
	}
	docs, err := e.remote.QueryAll(ctx)
	if err != nil {
		e.logger.Warn("remote query failed, serving fallback", "error", err)
		e.metrics.Observe(ctx, "get_all_pieces", false, time.Since(start))
		return e.local.Pieces()
	}
	pieces := make([]domain.Piece, 0, len(docs))
	dropped := 0
	for _, doc := range docs {
		piece, ok := e.decodeDocument(doc)
		if !ok {
			dropped++
			continue
		}
		pieces = append(pieces, piece)
	}
	if dropped > 0 {
		e.logger.Info("skipped invalid documents during full read", "count", dropped)
	}
	e.local.Save(pieces)
	go e.cache.Set(pieces)
	e.metrics.Observe(ctx, "get_all_pieces", true, time.Since(start))
	return pieces
}

// decodeDocument normalizes and validates one remote document. Documents
// that fail validation are dropped from read results.
func (e *Engine) decodeDocument(doc domain.Document) (domain.Piece, bool) {
	rec := normalize.Record(doc.Fields)
	rec[domain.FieldID] = doc.ID
	normalize.HolderName(rec)
	if res := validate.Record(rec); !res.IsValid {
		e.logger.Warn("dropping invalid remote document", "id", doc.ID, "errors", strings.Join(res.Errors, "; "))
		return domain.Piece{}, false
	}
	return domain.PieceFromRecord(rec), true
}

// GetPiece fetches one piece by document id. Offline or on remote failure it
// scans the fallback mirror. The boolean reports existence.
func (e *Engine) GetPiece(ctx context.Context, id string) (domain.Piece, bool) {
	start := e.now()
	defer func() { e.metrics.Observe(ctx, "get_piece", true, time.Since(start)) }()
	if id == "" {
		return domain.Piece{}, false
	}
	if !e.conn.Online() {
		return e.findLocal(id)
	}
	doc, ok, err := e.remote.Get(ctx, id)
	if err != nil {
		e.logger.Warn("remote get failed, serving fallback", "id", id, "error", err)
		return e.findLocal(id)
	}
	if !ok {
		return domain.Piece{}, false
	}
	rec := normalize.Record(doc.Fields)
	rec[domain.FieldID] = doc.ID
	normalize.HolderName(rec)
	if res := validate.Record(rec); !res.IsValid {
		e.logger.Warn("serving invalid remote document", "id", doc.ID, "errors", strings.Join(res.Errors, "; "))
	}
	return domain.PieceFromRecord(rec), true
}

func (e *Engine) findLocal(id string) (domain.Piece, bool) {
	for _, p := range e.local.Pieces() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Piece{}, false
}

// Page is one page of the collection.
type Page struct {
	Pieces     []domain.Piece `json:"pieces"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// GetPiecesPaginated slices the collection view into fixed-size pages. It
// reads through GetAllPieces and inherits its degradation behavior.
func (e *Engine) GetPiecesPaginated(ctx context.Context, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	all := e.GetAllPieces(ctx)
	total := len(all)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return Page{Pieces: all[start:end], Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}

// AddPiece normalizes, sanitizes and validates the record, then issues a
// single remote create. The fallback mirror is appended synchronously and
// the cache invalidated in the background.
func (e *Engine) AddPiece(ctx context.Context, raw domain.RawRecord) (piece domain.Piece, err error) {
	defer e.observe(ctx, "add_piece", e.now(), &err)
	rec, err := e.prepare(raw)
	if err != nil {
		return domain.Piece{}, err
	}
	if !e.conn.Online() {
		return domain.Piece{}, domain.ErrOffline
	}
	delete(rec, domain.FieldID)
	id, err := e.remote.Add(ctx, rec)
	if err != nil {
		return domain.Piece{}, fmt.Errorf("add piece: %w", err)
	}
	rec[domain.FieldID] = id
	piece = domain.PieceFromRecord(rec)
	e.local.Save(append(e.local.Pieces(), piece))
	go e.cache.Invalidate()
	return piece, nil
}

// UpdatePiece issues a partial remote update and merges the change into the
// matching fallback entry synchronously.
func (e *Engine) UpdatePiece(ctx context.Context, id string, raw domain.RawRecord) (piece domain.Piece, err error) {
	defer e.observe(ctx, "update_piece", e.now(), &err)
	if id == "" {
		return domain.Piece{}, fmt.Errorf("invalid piece id")
	}
	rec, err := e.prepare(raw)
	if err != nil {
		return domain.Piece{}, err
	}
	if !e.conn.Online() {
		return domain.Piece{}, domain.ErrOffline
	}
	delete(rec, domain.FieldID)
	if err := e.remote.Update(ctx, id, rec); err != nil {
		return domain.Piece{}, fmt.Errorf("update piece %s: %w", id, err)
	}
	rec[domain.FieldID] = id
	piece = domain.PieceFromRecord(rec)
	pieces := e.local.Pieces()
	for i, p := range pieces {
		if p.ID == id {
			merged := p.Record()
			for k, v := range rec {
				merged[k] = v
			}
			pieces[i] = domain.PieceFromRecord(merged)
			e.local.Save(pieces)
			break
		}
	}
	go e.cache.Invalidate()
	return piece, nil
}

// DeletePiece removes one document remotely and from the fallback mirror.
func (e *Engine) DeletePiece(ctx context.Context, id string) (err error) {
	defer e.observe(ctx, "delete_piece", e.now(), &err)
	if id == "" {
		return fmt.Errorf("invalid piece id")
	}
	if !e.conn.Online() {
		return domain.ErrOffline
	}
	if err := e.remote.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete piece %s: %w", id, err)
	}
	pieces := e.local.Pieces()
	kept := pieces[:0]
	for _, p := range pieces {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	e.local.Save(kept)
	go e.cache.Invalidate()
	return nil
}

// DeleteAllPieces removes every document in batches bounded by the remote
// per-batch operation limit and reports the number deleted. An already empty
// collection short-circuits without issuing a batch.
func (e *Engine) DeleteAllPieces(ctx context.Context) (count int, err error) {
	defer e.observe(ctx, "delete_all_pieces", e.now(), &err)
	if !e.conn.Online() {
		return 0, domain.ErrOffline
	}
	docs, err := e.remote.QueryAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all pieces: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	batch := e.remote.NewBatch()
	for _, doc := range docs {
		batch.Delete(doc.ID)
		if batch.Len() >= domain.RemoteBatchLimit {
			if err := batch.Commit(ctx); err != nil {
				return 0, fmt.Errorf("delete all pieces: %w", err)
			}
		}
	}
	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return 0, fmt.Errorf("delete all pieces: %w", err)
		}
	}
	e.local.Clear()
	go e.cache.Invalidate()
	return len(docs), nil
}

// BulkResult classifies every record of a bulk import into exactly one
// bucket.
type BulkResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// BulkAddPieces upserts records by their APN business key. Existing APNs
// receive partial updates against their document id, unknown APNs become
// creates under a fresh id, records without an APN count as errors. Writes
// are committed in batches of at most the remote operation limit; committed
// batches stay durable when a later batch fails. The cache is invalidated
// once after the final commit.
func (e *Engine) BulkAddPieces(ctx context.Context, records []domain.RawRecord) (res BulkResult, err error) {
	defer e.observe(ctx, "bulk_add_pieces", e.now(), &err)
	if !e.conn.Online() {
		return BulkResult{}, domain.ErrOffline
	}
	existing := e.GetAllPieces(ctx)
	byAPN := make(map[string]string, len(existing))
	for _, p := range existing {
		if apn := strings.TrimSpace(p.APN); apn != "" {
			byAPN[apn] = p.ID
		}
	}
	batch := e.remote.NewBatch()
	for _, raw := range records {
		rec := sanitizeRecord(normalize.Record(raw))
		apn := strings.TrimSpace(domain.CoerceString(rec[domain.FieldAPN]))
		if apn == "" {
			res.Errors++
			continue
		}
		normalize.HolderName(rec)
		delete(rec, domain.FieldID)
		if docID, ok := byAPN[apn]; ok {
			batch.Update(docID, rec)
			res.Updated++
		} else {
			batch.Set(e.remote.NewDocID(), rec)
			res.Added++
		}
		if batch.Len() >= domain.RemoteBatchLimit {
			if err := batch.Commit(ctx); err != nil {
				return res, fmt.Errorf("bulk add pieces: %w", err)
			}
		}
	}
	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return res, fmt.Errorf("bulk add pieces: %w", err)
		}
	}
	go e.cache.Invalidate()
	return res, nil
}

// SearchPieces filters the collection by a case-insensitive substring match
// over every field value, including array fields. A non-positive limit
// defaults to 50.
func (e *Engine) SearchPieces(ctx context.Context, query string, limit int) []domain.Piece {
	start := e.now()
	defer func() { e.metrics.Observe(ctx, "search_pieces", true, time.Since(start)) }()
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if limit <= 0 {
		limit = 50
	}
	needle := strings.ToLower(query)
	var matches []domain.Piece
	for _, piece := range e.GetAllPieces(ctx) {
		if recordMatches(piece.Record(), needle) {
			matches = append(matches, piece)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches
}

func recordMatches(rec domain.RawRecord, needle string) bool {
	for _, val := range rec {
		switch v := val.(type) {
		case nil:
			continue
		case string:
			if strings.Contains(strings.ToLower(v), needle) {
				return true
			}
		case []string:
			for _, item := range v {
				if strings.Contains(strings.ToLower(item), needle) {
					return true
				}
			}
		case []any:
			for _, item := range v {
				if item == nil {
					continue
				}
				if strings.Contains(strings.ToLower(fmt.Sprintf("%v", item)), needle) {
					return true
				}
			}
		default:
			if strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), needle) {
				return true
			}
		}
	}
	return false
}

// Export is the JSON export envelope.
type Export struct {
	Pieces     []domain.Piece `json:"pieces"`
	ExportedAt time.Time      `json:"exportedAt"`
}

// ExportJSON serializes the full collection with an export timestamp.
func (e *Engine) ExportJSON(ctx context.Context) ([]byte, error) {
	out := Export{Pieces: e.GetAllPieces(ctx), ExportedAt: e.now().UTC()}
	if out.Pieces == nil {
		out.Pieces = []domain.Piece{}
	}
	return json.Marshal(out)
}

// ImportJSON parses an export envelope and bulk-upserts its records,
// returning the number of records written.
func (e *Engine) ImportJSON(ctx context.Context, data []byte) (int, error) {
	var envelope struct {
		Pieces []domain.RawRecord `json:"pieces"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return 0, fmt.Errorf("invalid import data format: %w", err)
	}
	if envelope.Pieces == nil {
		return 0, fmt.Errorf("invalid import data format: missing pieces array")
	}
	res, err := e.BulkAddPieces(ctx, envelope.Pieces)
	if err != nil {
		return res.Added + res.Updated, err
	}
	return res.Added + res.Updated, nil
}

// ClearCache removes the cached collection entry.
func (e *Engine) ClearCache() { e.cache.Invalidate() }

// SaveUploadedImages persists the filename to image data map in the local
// store, routed through the operation queue.
func (e *Engine) SaveUploadedImages(ctx context.Context, images map[string]string) error {
	if images == nil {
		images = map[string]string{}
	}
	payload, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("encode uploaded images: %w", err)
	}
	_, err = e.queue.Enqueue(func(opCtx context.Context) (any, error) {
		return nil, e.kv.SetItem(opCtx, UploadedImagesKey, payload)
	})
	if err != nil {
		return fmt.Errorf("save uploaded images: %w", err)
	}
	return nil
}

// UploadedImages loads the persisted map, empty when absent.
func (e *Engine) UploadedImages(ctx context.Context) (map[string]string, error) {
	val, err := e.queue.Enqueue(func(opCtx context.Context) (any, error) {
		data, ok, err := e.kv.GetItem(opCtx, UploadedImagesKey)
		if err != nil || !ok {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load uploaded images: %w", err)
	}
	data, _ := val.([]byte)
	if len(data) == 0 {
		return map[string]string{}, nil
	}
	images := map[string]string{}
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, fmt.Errorf("decode uploaded images: %w", err)
	}
	return images, nil
}

// prepare runs the write-side pipeline: key normalization, sanitization,
// holder-name shaping and validation with value coercion.
func (e *Engine) prepare(raw domain.RawRecord) (domain.RawRecord, error) {
	rec := sanitizeRecord(normalize.Record(raw))
	normalize.HolderName(rec)
	if err := validate.Record(rec).Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

// sanitizeRecord drops absent values and coerces empty strings to null so
// the remote store never receives empty-string field noise.
func sanitizeRecord(rec domain.RawRecord) domain.RawRecord {
	out := make(domain.RawRecord, len(rec))
	for key, val := range rec {
		if val == nil {
			continue
		}
		if s, ok := val.(string); ok && s == "" {
			out[key] = nil
			continue
		}
		out[key] = val
	}
	return out
}

func (e *Engine) observe(ctx context.Context, op string, start time.Time, err *error) {
	e.metrics.Observe(ctx, op, *err == nil, time.Since(start))
}
