package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/noah-isme/study-vault-api/internal/dto"
	"github.com/noah-isme/study-vault-api/internal/models"
	"github.com/noah-isme/study-vault-api/internal/repository"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
	"github.com/noah-isme/study-vault-api/pkg/storage"
)

var adminClaims = &models.JWTClaims{Role: models.RoleAdmin}

type blobStub struct {
	objects   map[string]*storage.Object
	putErr    error
	deleteErr error
	deleted   []string
	seq       int
}

func newBlobStub() *blobStub {
	return &blobStub{objects: make(map[string]*storage.Object)}
}

func (b *blobStub) Put(_ context.Context, filename string, data []byte) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	b.seq++
	id := fmt.Sprintf("blob-%d", b.seq)
	b.objects[id] = &storage.Object{ID: id, Filename: filename, Data: data}
	return id, nil
}

func (b *blobStub) Get(_ context.Context, id string) (*storage.Object, error) {
	obj, ok := b.objects[id]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	cp := *obj
	return &cp, nil
}

func (b *blobStub) Delete(_ context.Context, id string) error {
	b.deleted = append(b.deleted, id)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.objects[id]; !ok {
		return storage.ErrBlobNotFound
	}
	delete(b.objects, id)
	return nil
}

type failingNoteStore struct {
	*repository.MemoryNoteRepository
	createErr error
}

func (f *failingNoteStore) Create(ctx context.Context, note *models.Note) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.MemoryNoteRepository.Create(ctx, note)
}

func newNoteServiceUnderTest() (*NoteService, *repository.MemoryNoteRepository, *blobStub) {
	notes := repository.NewMemoryNoteRepository()
	blobs := newBlobStub()
	return NewNoteService(notes, blobs, nil, nil, nil, nil), notes, blobs
}

func upload(t *testing.T, svc *NoteService, title, category string) string {
	t.Helper()
	id, err := svc.Upload(context.Background(),
		dto.UploadNoteRequest{Title: title, Category: category},
		NoteUpload{Filename: title + ".pdf", Content: []byte("%PDF-1.4")},
		adminClaims,
	)
	require.NoError(t, err)
	return id
}

func noteTitles(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func TestNoteServiceUploadStoresBlobAndRecord(t *testing.T) {
	svc, _, blobs := newNoteServiceUnderTest()
	fixed := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	id, err := svc.Upload(context.Background(),
		dto.UploadNoteRequest{Title: "  Calculus I ", Description: "week 1", Category: "Mathematics"},
		NoteUpload{Filename: "calc.pdf", Content: []byte("%PDF-1.4 calc")},
		adminClaims,
	)
	require.NoError(t, err)

	note, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Calculus I", note.Title)
	assert.Equal(t, "week 1", note.Description)
	assert.Equal(t, id, note.ShareToken)
	assert.Equal(t, fixed, note.UploadedAt)
	assert.Equal(t, 0, note.Order)
	assert.Equal(t, "calc.pdf", note.Filename)
	assert.Equal(t, []byte("%PDF-1.4 calc"), blobs.objects[note.BlobID].Data)
}

func TestNoteServiceUploadValidation(t *testing.T) {
	svc, notes, blobs := newNoteServiceUnderTest()
	ctx := context.Background()

	cases := []struct {
		name     string
		meta     dto.UploadNoteRequest
		filename string
		message  string
	}{
		{"bad category", dto.UploadNoteRequest{Title: "x", Category: "Astrology"}, "x.pdf", "Invalid category"},
		{"upper case extension", dto.UploadNoteRequest{Title: "x", Category: "Science"}, "x.PDF", "Only PDF files are allowed"},
		{"not a pdf", dto.UploadNoteRequest{Title: "x", Category: "Science"}, "x.docx", "Only PDF files are allowed"},
		{"blank title", dto.UploadNoteRequest{Title: "   ", Category: "Science"}, "x.pdf", "title and category are required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tc.meta, NoteUpload{Filename: tc.filename, Content: []byte("x")}, adminClaims)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}

	listed, err := notes.List(ctx, models.NoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Empty(t, blobs.objects)
}

func TestNoteServiceRequiresAdmin(t *testing.T) {
	svc, _, _ := newNoteServiceUnderTest()
	ctx := context.Background()
	viewer := &models.JWTClaims{Role: "viewer"}

	_, err := svc.Upload(ctx, dto.UploadNoteRequest{Title: "x", Category: "Science"}, NoteUpload{Filename: "x.pdf"}, nil)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.Update(ctx, "id", dto.UpdateNoteRequest{}, viewer), appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "id", nil), appErrors.ErrForbidden)
}

func TestNoteServiceUploadCompensatesOnCatalogFailure(t *testing.T) {
	blobs := newBlobStub()
	store := &failingNoteStore{MemoryNoteRepository: repository.NewMemoryNoteRepository(), createErr: errors.New("db down")}
	svc := NewNoteService(store, blobs, nil, nil, nil, nil)

	_, err := svc.Upload(context.Background(),
		dto.UploadNoteRequest{Title: "x", Category: "Science"},
		NoteUpload{Filename: "x.pdf", Content: []byte("x")},
		adminClaims,
	)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"blob-1"}, blobs.deleted)
	assert.Empty(t, blobs.objects)
}

func TestNoteServiceListFilterAndSort(t *testing.T) {
	svc, _, _ := newNoteServiceUnderTest()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	upload(t, svc, "banana", "Science")
	upload(t, svc, "Apple", "Mathematics")
	upload(t, svc, "cherry", "Science")

	got, err := svc.List(ctx, "", "name_asc")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "banana", "cherry"}, noteTitles(got))

	desc, err := svc.List(ctx, models.AllCategories, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"cherry", "Apple", "banana"}, noteTitles(desc))

	asc, err := svc.List(ctx, "", "date_asc")
	require.NoError(t, err)
	for i := range asc {
		assert.Equal(t, desc[len(desc)-1-i].ID, asc[i].ID)
	}

	science, err := svc.List(ctx, "Science", "unknown-key")
	require.NoError(t, err)
	assert.Equal(t, []string{"banana", "cherry"}, noteTitles(science))

	empty, err := svc.List(ctx, "History", "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestNoteServiceUpdate(t *testing.T) {
	svc, _, _ := newNoteServiceUnderTest()
	ctx := context.Background()
	id := upload(t, svc, "Optics", "Science")

	bad := "NotARealCategory"
	err := svc.Update(ctx, id, dto.UpdateNoteRequest{Category: &bad}, adminClaims)
	assert.Equal(t, "Invalid category", appErrors.FromError(err).Message)
	note, _ := svc.Get(ctx, id)
	assert.Equal(t, "Science", note.Category)

	err = svc.Update(ctx, "missing", dto.UpdateNoteRequest{Category: &bad}, adminClaims)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Update(ctx, id, dto.UpdateNoteRequest{}, adminClaims))

	title, order := "Wave Optics", 4
	require.NoError(t, svc.Update(ctx, id, dto.UpdateNoteRequest{Title: &title, Order: &order}, adminClaims))
	note, _ = svc.Get(ctx, id)
	assert.Equal(t, "Wave Optics", note.Title)
	assert.Equal(t, 4, note.Order)
	assert.Equal(t, "Science", note.Category)
}

func TestNoteServiceDelete(t *testing.T) {
	svc, _, blobs := newNoteServiceUnderTest()
	ctx := context.Background()
	id := upload(t, svc, "Thermo", "Science")
	note, _ := svc.Get(ctx, id)

	require.NoError(t, svc.Delete(ctx, id, adminClaims))
	assert.Equal(t, []string{note.BlobID}, blobs.deleted)

	_, err := svc.Get(ctx, id)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id, adminClaims), appErrors.ErrNotFound)
}

func TestNoteServiceDeleteSwallowsBlobFailure(t *testing.T) {
	svc, _, blobs := newNoteServiceUnderTest()
	ctx := context.Background()
	id := upload(t, svc, "Thermo", "Science")
	blobs.deleteErr = errors.New("bucket unavailable")

	require.NoError(t, svc.Delete(ctx, id, adminClaims))
	_, err := svc.Get(ctx, id)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

type orphanRecorder struct {
	queued []string
	err    error
}

func (o *orphanRecorder) Enqueue(_ string, blobID string) error {
	if o.err != nil {
		return o.err
	}
	o.queued = append(o.queued, blobID)
	return nil
}

func TestNoteServiceQueuesOrphanedBlob(t *testing.T) {
	svc, _, blobs := newNoteServiceUnderTest()
	orphans := &orphanRecorder{}
	svc.WithOrphanQueue(orphans)
	ctx := context.Background()

	id := upload(t, svc, "Thermo", "Science")
	note, err := svc.Get(ctx, id)
	require.NoError(t, err)

	blobs.deleteErr = errors.New("bucket unavailable")
	require.NoError(t, svc.Delete(ctx, id, adminClaims))
	assert.Equal(t, []string{note.BlobID}, orphans.queued)
}

func TestNoteServiceSkipsQueueForMissingBlob(t *testing.T) {
	svc, _, blobs := newNoteServiceUnderTest()
	orphans := &orphanRecorder{}
	svc.WithOrphanQueue(orphans)
	ctx := context.Background()

	id := upload(t, svc, "Thermo", "Science")
	blobs.objects = map[string]*storage.Object{}

	require.NoError(t, svc.Delete(ctx, id, adminClaims))
	assert.Empty(t, orphans.queued)
}

func TestNoteServiceGetBlob(t *testing.T) {
	svc, _, blobs := newNoteServiceUnderTest()
	ctx := context.Background()
	id := upload(t, svc, "Circuits", "Engineering")
	note, _ := svc.Get(ctx, id)

	byBlob, err := svc.GetBlob(ctx, note.BlobID)
	require.NoError(t, err)
	assert.Equal(t, "Circuits.pdf", byBlob.Filename)

	byShare, err := svc.GetBlob(ctx, note.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, byBlob.Data, byShare.Data)

	_, err = svc.GetBlob(ctx, "nothing-here")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	delete(blobs.objects, note.BlobID)
	_, err = svc.GetBlob(ctx, id)
	assert.Equal(t, "PDF not found", appErrors.FromError(err).Message)
}

func TestNoteServiceCachesReadsAndInvalidatesOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	metrics := NewMetricsService()
	cache := NewCacheService(repository.NewCacheRepository(client), metrics, time.Minute, nil, true)
	bucket := storage.NewBucketStore(memblob.OpenBucket(nil))
	defer bucket.Close()
	svc := NewNoteService(repository.NewMemoryNoteRepository(), bucket, cache, metrics, nil, nil)
	ctx := context.Background()

	id := upload(t, svc, "Graphs", "Computer Science")
	_, err := svc.List(ctx, "", "")
	require.NoError(t, err)
	_, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, mr.Exists("notes:list::date_desc"))
	assert.True(t, mr.Exists("notes:item:"+id))

	title := "Graph Theory"
	require.NoError(t, svc.Update(ctx, id, dto.UpdateNoteRequest{Title: &title}, adminClaims))
	assert.Empty(t, mr.Keys())

	note, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Graph Theory", note.Title)

	obj, err := svc.GetBlob(ctx, note.BlobID)
	require.NoError(t, err)
	assert.Equal(t, "Graphs.pdf", obj.Filename)
}

func newCachedNoteService(t *testing.T, notes noteStore) (*NoteService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	metrics := NewMetricsService()
	cache := NewCacheService(repository.NewCacheRepository(client), metrics, time.Minute, nil, true)
	return NewNoteService(notes, newBlobStub(), cache, metrics, nil, nil), mr
}

func TestNoteServiceListCacheKeys(t *testing.T) {
	svc, mr := newCachedNoteService(t, repository.NewMemoryNoteRepository())
	ctx := context.Background()
	upload(t, svc, "Atoms", "Science")
	mr.FlushAll()

	for _, key := range []string{"x1", "x2", "relevance"} {
		_, err := svc.List(ctx, "Science", key)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"notes:list:Science:natural"}, mr.Keys())

	for _, category := range []string{"Astrology", "Cooking", "science"} {
		got, err := svc.List(ctx, category, "")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, []string{"notes:list:Science:natural"}, mr.Keys())
}

// gatedNoteStore parks the first GetByID after it has read the record.
type gatedNoteStore struct {
	*repository.MemoryNoteRepository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (g *gatedNoteStore) GetByID(ctx context.Context, id string) (*models.Note, error) {
	note, err := g.MemoryNoteRepository.GetByID(ctx, id)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.loaded)
		<-g.release
	}
	return note, err
}

func TestNoteServiceReadRacingWriteDoesNotCacheStaleNote(t *testing.T) {
	store := &gatedNoteStore{
		MemoryNoteRepository: repository.NewMemoryNoteRepository(),
		loaded:               make(chan struct{}),
		release:              make(chan struct{}),
	}
	svc, mr := newCachedNoteService(t, store)
	ctx := context.Background()
	id := upload(t, svc, "Draft", "History")

	done := make(chan *models.Note, 1)
	go func() {
		note, err := svc.Get(ctx, id)
		assert.NoError(t, err)
		done <- note
	}()
	<-store.loaded

	title := "Final"
	require.NoError(t, svc.Update(ctx, id, dto.UpdateNoteRequest{Title: &title}, adminClaims))
	close(store.release)

	stale := <-done
	assert.Equal(t, "Draft", stale.Title)
	assert.False(t, mr.Exists("notes:item:"+id))

	fresh, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Final", fresh.Title)
}

func TestNoteServiceListCategories(t *testing.T) {
	svc, _, _ := newNoteServiceUnderTest()
	cats := svc.ListCategories()
	assert.Len(t, cats, 10)
	assert.Equal(t, "Computer Science", cats[2])
}
