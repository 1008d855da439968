package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/study-vault-api/internal/dto"
	"github.com/noah-isme/study-vault-api/internal/models"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
	"github.com/noah-isme/study-vault-api/pkg/storage"
)

const (
	// listLimit caps a single listing.
	listLimit = 1000

	noteCachePattern = "notes:*"

	// naturalSortKey names every unrecognised sort key in cache keys.
	naturalSortKey = "natural"
)

type noteStore interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id string) (*models.Note, error)
	List(ctx context.Context, filter models.NoteFilter) ([]models.Note, error)
	Update(ctx context.Context, id string, changes models.NoteChanges) error
	Delete(ctx context.Context, id string) error
}

type noteBlobStore interface {
	Put(ctx context.Context, filename string, data []byte) (string, error)
	Get(ctx context.Context, id string) (*storage.Object, error)
	Delete(ctx context.Context, id string) error
}

// orphanQueue retries blob deletions that failed inline.
type orphanQueue interface {
	Enqueue(key string, blobID string) error
}

// NoteUpload is the file part of an upload.
type NoteUpload struct {
	Filename string
	Content  []byte
}

// NoteService runs the note catalog use cases over the catalog and blob stores.
type NoteService struct {
	notes     noteStore
	blobs     noteBlobStore
	cache     *CacheService
	metrics   *MetricsService
	orphans   orphanQueue
	fence     cacheFence
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNoteService constructs the service. cache and metrics may be nil.
func NewNoteService(notes noteStore, blobs noteBlobStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NoteService{
		notes:     notes,
		blobs:     blobs,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithOrphanQueue hands blob deletions that fail inline to q for retry.
func (s *NoteService) WithOrphanQueue(q orphanQueue) *NoteService {
	s.orphans = q
	return s
}

// ListCategories returns the fixed category list.
func (s *NoteService) ListCategories() []string {
	return models.Categories()
}

// Upload stores the PDF and its metadata and returns the new note id.
func (s *NoteService) Upload(ctx context.Context, meta dto.UploadNoteRequest, upload NoteUpload, actor *models.JWTClaims) (string, error) {
	if !actor.IsAdmin() {
		return "", appErrors.ErrForbidden
	}
	meta.Title = strings.TrimSpace(meta.Title)
	if err := s.validator.Struct(meta); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title and category are required")
	}
	if !models.IsValidCategory(meta.Category) {
		return "", appErrors.Clone(appErrors.ErrValidation, "Invalid category")
	}
	if !strings.HasSuffix(upload.Filename, ".pdf") {
		return "", appErrors.Clone(appErrors.ErrValidation, "Only PDF files are allowed")
	}

	start := time.Now()
	blobID, err := s.blobs.Put(ctx, upload.Filename, upload.Content)
	s.metrics.ObserveStore("blob", "put", time.Since(start))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pdf")
	}

	note := &models.Note{
		Title:       meta.Title,
		Description: meta.Description,
		Category:    meta.Category,
		BlobID:      blobID,
		Filename:    upload.Filename,
		UploadedAt:  s.now(),
	}
	s.fence.advance()
	start = time.Now()
	err = s.notes.Create(ctx, note)
	s.metrics.ObserveStore("catalog", "create", time.Since(start))
	if err != nil {
		s.discardBlob(ctx, blobID)
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}

	s.cache.Invalidate(ctx, noteCachePattern)
	s.metrics.ObserveUpload(len(upload.Content))
	s.logger.Info("note uploaded",
		zap.String("note_id", note.ID),
		zap.String("category", note.Category),
		zap.Int("size_bytes", len(upload.Content)),
	)
	return note.ID, nil
}

// List returns notes in category ordered by sortKey. "" and "All" mean every category;
// an empty sort key means newest first and unknown keys keep natural order.
func (s *NoteService) List(ctx context.Context, category, sortKey string) ([]models.Note, error) {
	if category == models.AllCategories {
		category = ""
	}
	if category != "" && !models.IsValidCategory(category) {
		return []models.Note{}, nil
	}
	sort := models.NoteSort(sortKey)
	if sort == "" {
		sort = models.SortDateDesc
	}
	keySort := string(sort)
	if !sort.Known() {
		keySort = naturalSortKey
	}

	key := fmt.Sprintf("notes:list:%s:%s", category, keySort)
	var cached []models.Note
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	gen := s.fence.generation()
	start := time.Now()
	notes, err := s.notes.List(ctx, models.NoteFilter{Category: category, Sort: sort, Limit: listLimit})
	s.metrics.ObserveStore("catalog", "list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	if notes == nil {
		notes = []models.Note{}
	}
	s.fence.set(ctx, s.cache, gen, key, notes)
	return notes, nil
}

// Get returns one note by id.
func (s *NoteService) Get(ctx context.Context, id string) (*models.Note, error) {
	key := "notes:item:" + id
	var cached models.Note
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	gen := s.fence.generation()
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fence.set(ctx, s.cache, gen, key, note)
	return note, nil
}

// Update applies the supplied fields. Unknown ids fail before any field is validated.
func (s *NoteService) Update(ctx context.Context, id string, req dto.UpdateNoteRequest, actor *models.JWTClaims) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	changes := models.NoteChanges{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Order:       req.Order,
	}
	if changes.Category != nil && !models.IsValidCategory(*changes.Category) {
		return appErrors.Clone(appErrors.ErrValidation, "Invalid category")
	}
	if changes.Empty() {
		return nil
	}

	s.fence.advance()
	start := time.Now()
	err := s.notes.Update(ctx, id, changes)
	s.metrics.ObserveStore("catalog", "update", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}

	s.cache.Invalidate(ctx, noteCachePattern)
	s.metrics.RecordNoteWrite("update")
	return nil
}

// Delete removes the note and then its blob. A failed blob removal does not fail the call.
func (s *NoteService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	note, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	s.fence.advance()
	start := time.Now()
	err = s.notes.Delete(ctx, id)
	s.metrics.ObserveStore("catalog", "delete", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}

	s.discardBlob(ctx, note.BlobID)

	s.cache.Invalidate(ctx, noteCachePattern)
	s.metrics.RecordNoteWrite("delete")
	return nil
}

// GetBlob resolves ref as a blob id, falling back to a note id or share token.
func (s *NoteService) GetBlob(ctx context.Context, ref string) (*storage.Object, error) {
	obj, err := s.fetchBlob(ctx, ref)
	if err == nil {
		return obj, nil
	}
	if !errors.Is(err, storage.ErrBlobNotFound) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read pdf")
	}

	note, err := s.notes.GetByID(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "PDF not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}

	obj, err = s.fetchBlob(ctx, note.BlobID)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "PDF not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read pdf")
	}
	if obj.Filename == "" {
		obj.Filename = note.Filename
	}
	return obj, nil
}

// discardBlob deletes blobID, queueing a retry on failure. A blob that is
// already gone counts as deleted.
func (s *NoteService) discardBlob(ctx context.Context, blobID string) {
	start := time.Now()
	err := s.blobs.Delete(ctx, blobID)
	s.metrics.ObserveStore("blob", "delete", time.Since(start))
	if err == nil || errors.Is(err, storage.ErrBlobNotFound) {
		return
	}
	if s.orphans != nil {
		if qErr := s.orphans.Enqueue(blobID, blobID); qErr == nil {
			s.logger.Warn("blob delete failed, retry queued", zap.String("blob_id", blobID), zap.Error(err))
			return
		}
	}
	s.logger.Warn("blob delete failed, blob orphaned", zap.String("blob_id", blobID), zap.Error(err))
}

// cacheFence keeps a read that started before a catalog write from caching
// what it loaded. Writers advance the generation before touching the store and
// invalidate afterwards; readers cache only if the generation is unchanged.
type cacheFence struct {
	mu  sync.RWMutex
	gen uint64
}

func (f *cacheFence) generation() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.gen
}

func (f *cacheFence) advance() {
	f.mu.Lock()
	f.gen++
	f.mu.Unlock()
}

func (f *cacheFence) set(ctx context.Context, cache *CacheService, gen uint64, key string, value interface{}) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.gen != gen {
		return
	}
	cache.Set(ctx, key, value)
}

func (s *NoteService) fetchBlob(ctx context.Context, id string) (*storage.Object, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveStore("blob", "get", time.Since(start)) }()
	return s.blobs.Get(ctx, id)
}

func (s *NoteService) load(ctx context.Context, id string) (*models.Note, error) {
	start := time.Now()
	note, err := s.notes.GetByID(ctx, id)
	s.metrics.ObserveStore("catalog", "get", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	return note, nil
}
