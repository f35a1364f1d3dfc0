package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/storage"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type mediaRepoStub struct {
	mu         sync.Mutex
	items      map[string]*models.Media
	order      []string
	createErr  error
	listErr    error
	lastFilter models.MediaFilter
	probes     map[string]models.MediaStatus
}

func newMediaRepoStub(items ...models.Media) *mediaRepoStub {
	m := &mediaRepoStub{items: map[string]*models.Media{}, probes: map[string]models.MediaStatus{}}
	for i := range items {
		item := items[i]
		m.items[item.ID] = &item
		m.order = append(m.order, item.ID)
	}
	return m
}

func (m *mediaRepoStub) CreateWithTx(ctx context.Context, tx *sqlx.Tx, media *models.Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if media.ID == "" {
		media.ID = fmt.Sprintf("media-%d", len(m.items)+1)
	}
	copied := *media
	m.items[media.ID] = &copied
	m.order = append(m.order, media.ID)
	return nil
}

func (m *mediaRepoStub) ExistsActiveContentHash(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.DeletedAt == nil && item.ContentHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (m *mediaRepoStub) ExistsActiveTapeNumber(ctx context.Context, tape string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.DeletedAt == nil && item.TapeNumber != nil && *item.TapeNumber == tape {
			return true, nil
		}
	}
	return false, nil
}

func (m *mediaRepoStub) GetByID(ctx context.Context, id string) (*models.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.DeletedAt != nil {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (m *mediaRepoStub) AccessState(ctx context.Context, id string) (*models.MediaAccessState, error) {
	item, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.MediaAccessState{Visibility: item.Visibility, UploadedBy: item.UploadedBy, Status: item.Status}, nil
}

func (m *mediaRepoStub) List(ctx context.Context, filter models.MediaFilter) ([]models.Media, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var live []models.Media
	for _, id := range m.order {
		if item := m.items[id]; item.DeletedAt == nil {
			live = append(live, *item)
		}
	}
	total := len(live)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}
	return live[start:end], total, nil
}

func (m *mediaRepoStub) UpdateMetadata(ctx context.Context, media *models.Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[media.ID]; !ok || item.DeletedAt != nil {
		return sql.ErrNoRows
	}
	copied := *media
	m.items[media.ID] = &copied
	return nil
}

func (m *mediaRepoStub) UpdateProbe(ctx context.Context, id string, width, height *int, status models.MediaStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.DeletedAt != nil {
		return sql.ErrNoRows
	}
	if width != nil {
		item.Width = width
	}
	if height != nil {
		item.Height = height
	}
	item.Status = status
	m.probes[id] = status
	return nil
}

func (m *mediaRepoStub) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.DeletedAt != nil {
		return sql.ErrNoRows
	}
	item.DeletedAt = &deletedAt
	return nil
}

func (m *mediaRepoStub) live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, item := range m.items {
		if item.DeletedAt == nil {
			count++
		}
	}
	return count
}

type tagRepoStub struct {
	mu             sync.Mutex
	tags           map[string]*models.Tag
	links          map[string]*models.MediaTag
	getOrCreateLog []string
}

func newTagRepoStub() *tagRepoStub {
	return &tagRepoStub{tags: map[string]*models.Tag{}, links: map[string]*models.MediaTag{}}
}

func (r *tagRepoStub) GetOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreateLog = append(r.getOrCreateLog, name)
	if tag, ok := r.tags[name]; ok {
		return tag, nil
	}
	tag := &models.Tag{ID: "tag-" + name, Name: name, CreatedAt: time.Now()}
	r.tags[name] = tag
	return tag, nil
}

func (r *tagRepoStub) GetOrCreateWithTx(ctx context.Context, tx *sqlx.Tx, name string) (*models.Tag, error) {
	return r.GetOrCreate(ctx, name)
}

func (r *tagRepoStub) Attach(ctx context.Context, mediaID, tagID, createdBy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := mediaID + "|" + tagID
	if _, ok := r.links[key]; ok {
		return false, nil
	}
	r.links[key] = &models.MediaTag{MediaID: mediaID, TagID: tagID, CreatedBy: createdBy, CreatedAt: time.Now()}
	return true, nil
}

func (r *tagRepoStub) AttachWithTx(ctx context.Context, tx *sqlx.Tx, mediaID, tagID, createdBy string) (bool, error) {
	return r.Attach(ctx, mediaID, tagID, createdBy)
}

func (r *tagRepoStub) GetAssociation(ctx context.Context, mediaID, tagID string) (*models.MediaTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[mediaID+"|"+tagID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *link
	return &copied, nil
}

func (r *tagRepoStub) Detach(ctx context.Context, mediaID, tagID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := mediaID + "|" + tagID
	if _, ok := r.links[key]; !ok {
		return sql.ErrNoRows
	}
	delete(r.links, key)
	return nil
}

func (r *tagRepoStub) ListByMedia(ctx context.Context, mediaID string) ([]models.MediaTagView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MediaTagView
	for _, link := range r.links {
		if link.MediaID != mediaID {
			continue
		}
		for _, tag := range r.tags {
			if tag.ID == link.TagID {
				out = append(out, models.MediaTagView{TagID: tag.ID, Name: tag.Name, CreatedBy: link.CreatedBy, CreatedAt: link.CreatedAt})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *tagRepoStub) linksFor(mediaID string) int {
	tags, _ := r.ListByMedia(context.Background(), mediaID)
	return len(tags)
}

type commentRepoStub struct {
	mu       sync.Mutex
	comments []*models.Comment
}

func (r *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if comment.ID == "" {
		comment.ID = fmt.Sprintf("comment-%d", len(r.comments)+1)
	}
	copied := *comment
	r.comments = append(r.comments, &copied)
	return nil
}

func (r *commentRepoStub) GetByID(ctx context.Context, mediaID, id string) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.comments {
		if c.ID == id && c.MediaID == mediaID && c.DeletedAt == nil {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *commentRepoStub) ListByMedia(ctx context.Context, mediaID string) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for i := len(r.comments) - 1; i >= 0; i-- {
		c := r.comments[i]
		if c.MediaID == mediaID && c.DeletedAt == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *commentRepoStub) CountByMedia(ctx context.Context, mediaID string) (int, error) {
	list, _ := r.ListByMedia(ctx, mediaID)
	return len(list), nil
}

func (r *commentRepoStub) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.comments {
		if c.ID == id && c.DeletedAt == nil {
			c.DeletedAt = &deletedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

type blobStoreStub struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writes   int
	deleted  []string
	writeErr error
}

func newBlobStoreStub() *blobStoreStub {
	return &blobStoreStub{objects: map[string][]byte{}}
}

func (b *blobStoreStub) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	if b.writeErr != nil {
		return 0, b.writeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.objects[key] = data
	return int64(len(data)), nil
}

func (b *blobStoreStub) ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

func (b *blobStoreStub) Size(ctx context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return 0, storage.ErrBlobNotFound
	}
	return int64(len(data)), nil
}

func (b *blobStoreStub) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func (b *blobStoreStub) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	delete(b.objects, key)
	return nil
}

func (b *blobStoreStub) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type sourceResolverStub struct {
	missing map[models.SourceKind]bool
}

func (s sourceResolverStub) Resolve(ctx context.Context, kind models.SourceKind) (*models.MediaSource, error) {
	if s.missing[kind] {
		return nil, appErrors.ErrSourceNotConfigured
	}
	return &models.MediaSource{ID: "src-" + string(kind), Kind: kind, Name: string(kind)}, nil
}

type probeSchedulerStub struct {
	scheduled []string
}

func (p *probeSchedulerStub) Schedule(mediaID string) error {
	p.scheduled = append(p.scheduled, mediaID)
	return nil
}

var (
	adminIdentity = &models.Identity{UserID: "admin-1", Role: models.RoleAdmin}
	userA         = &models.Identity{UserID: "user-a", Role: models.RoleUser}
	userB         = &models.Identity{UserID: "user-b", Role: models.RoleUser}
	guestIdentity = &models.Identity{UserID: "guest-1", Role: models.RoleGuest}
)

func pngBytes(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: shade, A: 255})
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func strPtr(v string) *string {
	return &v
}

func storedMedia(id, owner string, visibility models.Visibility) models.Media {
	return models.Media{
		ID:          id,
		Kind:        models.MediaKindVideo,
		UploadedBy:  owner,
		SourceID:    "src-USER_UPLOAD",
		SourceKind:  models.SourceUserUpload,
		Visibility:  visibility,
		Status:      models.MediaStatusReady,
		ContentHash: "hash-" + id,
		CreatedAt:   time.Now().UTC(),
	}
}
