package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel() (*Model, *MemoryStore) {
	kv := NewMemoryStore()
	return NewModel(kv, "/test/index", "/test/item/%s/attrs", "/test/item/%s/tags"), kv
}

func TestModelCreateAndRead(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel()

	require.NoError(t, m.Create(ctx, "id-1", map[string]string{"url": "http://10.0.0.1:1"}, []string{"b", "a", "a"}))

	ids, err := m.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1"}, ids)

	exists, err := m.Exists(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, exists)

	attrs, tags, err := m.Read(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"url": "http://10.0.0.1:1"}, attrs)
	assert.Equal(t, []string{"a", "b"}, tags, "tags are deduped and sorted")
}

func TestModelCreateDuplicateID(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel()

	require.NoError(t, m.Create(ctx, "id-1", nil, nil))
	assert.Error(t, m.Create(ctx, "id-1", nil, nil))
}

func TestModelReadUnknownIDIsSoft(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel()

	attrs, tags, err := m.Read(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, attrs)
	assert.Empty(t, tags)

	exists, err := m.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestModelWriteMergesAttributes(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel()

	require.NoError(t, m.Create(ctx, "id-1", map[string]string{"url": "u1", "max-sessions": "6"}, []string{"a"}))
	require.NoError(t, m.Write(ctx, "id-1", map[string]string{"max-sessions": "3"}, nil))

	attrs, tags, err := m.Read(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", attrs["url"], "absent fields stay untouched")
	assert.Equal(t, "3", attrs["max-sessions"])
	assert.Equal(t, []string{"a"}, tags, "nil tags leave the tag set alone")
}

func TestModelWriteReplacesTagsWholesale(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel()

	require.NoError(t, m.Create(ctx, "id-1", nil, []string{"a", "b"}))
	require.NoError(t, m.Write(ctx, "id-1", nil, []string{"c"}))

	_, tags, err := m.Read(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, tags)

	// Empty non-nil clears.
	require.NoError(t, m.Write(ctx, "id-1", nil, []string{}))
	_, tags, err = m.Read(ctx, "id-1")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestModelDeleteRemovesAllTraces(t *testing.T) {
	ctx := context.Background()
	m, kv := newTestModel()

	require.NoError(t, m.Create(ctx, "id-1", map[string]string{"url": "u1"}, []string{"a"}))
	require.NoError(t, m.Delete(ctx, "id-1"))

	exists, err := m.Exists(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, exists)

	ids, err := m.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, _, ok, err := kv.Get(ctx, "/test/item/id-1/attrs")
	require.NoError(t, err)
	assert.False(t, ok, "attribute record deleted")
	_, _, ok, err = kv.Get(ctx, "/test/item/id-1/tags")
	require.NoError(t, err)
	assert.False(t, ok, "tag record deleted")
}

func TestModelDeleteCleansStrayRecords(t *testing.T) {
	ctx := context.Background()
	m, kv := newTestModel()

	// An orphaned attribute record with no index membership.
	require.NoError(t, kv.Txn(ctx, nil, []Op{Put("/test/item/ghost/attrs", []byte(`{"url":"u"}`))}))

	require.NoError(t, m.Delete(ctx, "ghost"))
	_, _, ok, err := kv.Get(ctx, "/test/item/ghost/attrs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModelDeleteConflictsWithConcurrentStructuralChange(t *testing.T) {
	ctx := context.Background()
	m, kv := newTestModel()

	require.NoError(t, m.Create(ctx, "id-1", nil, nil))

	// Simulate another coordinator moving the index between our read and the
	// guarded transaction by bumping the index key out from under a stale
	// guard.
	_, rev, _, err := kv.Get(ctx, "/test/index")
	require.NoError(t, err)
	require.NoError(t, kv.Txn(ctx, nil, []Op{Put("/test/index", []byte(`["id-1","id-2"]`))}))

	err = kv.Txn(ctx, []Guard{{Key: "/test/index", Rev: rev}}, []Op{Del("/test/item/id-1/attrs")})
	assert.ErrorIs(t, err, ErrTxnConflict)
}

func TestModelSeparateInstancesShareState(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	writer := NewModel(kv, "/test/index", "/test/item/%s/attrs", "/test/item/%s/tags")
	reader := NewModel(kv, "/test/index", "/test/item/%s/attrs", "/test/item/%s/tags")

	require.NoError(t, writer.Create(ctx, "id-1", map[string]string{"url": "u1"}, nil))

	exists, err := reader.Exists(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, exists, "a second coordinator sees the same persisted state")
}
