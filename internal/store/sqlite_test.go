package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testItem(id string) content.StoredItem {
	return content.StoredItem{
		ID:         id,
		URL:        "https://docs.example.com/api/auth",
		Title:      "API Authentication",
		Content:    "How to authenticate against the REST API using tokens.",
		Category:   content.CategoryDocumentation,
		Tags:       []string{"api", "auth", "rest"},
		Concepts:   []string{"authentication", "tokens"},
		Importance: 8,
	}
}

func TestCreateAndRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, testItem("item-1"))
	require.NoError(t, err)
	assert.Equal(t, "item-1", id)

	got, err := s.Read(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "API Authentication", got.Title)
	assert.Equal(t, content.CategoryDocumentation, got.Category)
	assert.Equal(t, []string{"api", "auth", "rest"}, got.Tags)
	assert.Equal(t, 8, got.Importance)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, int64(len(got.Content)), got.SizeBytes)
}

func TestCreateRequiresID(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Create(context.Background(), content.StoredItem{URL: "https://example.com"})
	require.Error(t, err)
	var serr *content.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "create", serr.Op)
}

func TestReadNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Read(context.Background(), "missing")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestListFiltersAndOrders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := testItem("older")
	older.CreatedAt = time.Now().Add(-2 * time.Hour)
	older.UpdatedAt = older.CreatedAt
	_, err := s.Create(ctx, older)
	require.NoError(t, err)

	newer := testItem("newer")
	_, err = s.Create(ctx, newer)
	require.NoError(t, err)

	social := testItem("social")
	social.Category = content.CategorySocial
	_, err = s.Create(ctx, social)
	require.NoError(t, err)

	all, err := s.List(ctx, engine.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	docs, err := s.List(ctx, engine.ListFilter{Category: content.CategoryDocumentation})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "newer", docs[0].ID, "most recently updated first")
	assert.Equal(t, "older", docs[1].ID)

	limited, err := s.List(ctx, engine.ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListEmpty(t *testing.T) {
	s := openTestStore(t)

	items, err := s.List(context.Background(), engine.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTouch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, testItem("item-1"))
	require.NoError(t, err)

	at := time.Now().Truncate(time.Millisecond)
	require.NoError(t, s.Touch(ctx, "item-1", at))
	require.NoError(t, s.Touch(ctx, "item-1", at.Add(time.Minute)))

	got, err := s.Read(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	assert.Equal(t, at.Add(time.Minute).UnixMilli(), got.LastAccessed.UnixMilli())

	assert.ErrorIs(t, s.Touch(ctx, "missing", at), content.ErrNotFound)
}

func TestReanalyze(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, testItem("item-1"))
	require.NoError(t, err)

	at := time.Now()
	err = s.Reanalyze(ctx, "item-1", content.CategoryArticle, []string{"oauth"}, at)
	require.NoError(t, err)

	got, err := s.Read(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, content.CategoryArticle, got.Category)
	assert.Equal(t, []string{"oauth"}, got.Concepts)

	assert.ErrorIs(t, s.Reanalyze(ctx, "missing", content.CategoryArticle, nil, at), content.ErrNotFound)
}

func TestStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.Nil(t, doc, "no state saved yet")

	require.NoError(t, s.SaveState(ctx, []byte(`{"version":1}`)))
	require.NoError(t, s.SaveState(ctx, []byte(`{"version":2}`)))

	doc, err = s.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, string(doc))
}

func TestCloseIdempotent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
