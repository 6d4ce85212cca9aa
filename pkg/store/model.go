package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Model is the store-backed persistence pattern shared by durable entities:
// one id-set index key, an attribute hash per id, and a tag set per id.
// Structural changes (index membership) are guarded on the index revision so
// concurrent reconciliation passes surface as ErrTxnConflict instead of
// silently racing. Attribute writes are deliberately unguarded: last write
// wins.
type Model struct {
	kv          KV
	indexKey    string
	attrKeyTmpl string
	tagKeyTmpl  string
}

// NewModel builds a model over kv parameterized by its index key and the
// per-id attribute and tag key templates (each with one %s for the id).
func NewModel(kv KV, indexKey, attrKeyTmpl, tagKeyTmpl string) *Model {
	return &Model{
		kv:          kv,
		indexKey:    indexKey,
		attrKeyTmpl: attrKeyTmpl,
		tagKeyTmpl:  tagKeyTmpl,
	}
}

func (m *Model) attrKey(id string) string { return fmt.Sprintf(m.attrKeyTmpl, id) }
func (m *Model) tagKey(id string) string  { return fmt.Sprintf(m.tagKeyTmpl, id) }

// readIndex returns the id set plus the index revision used to guard
// structural transactions. An absent index reads as empty at revision 0.
func (m *Model) readIndex(ctx context.Context) ([]string, int64, error) {
	value, rev, ok, err := m.kv.Get(ctx, m.indexKey)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, nil
	}
	var ids []string
	if err := json.Unmarshal(value, &ids); err != nil {
		return nil, 0, fmt.Errorf("decode index %s: %w", m.indexKey, err)
	}
	return ids, rev, nil
}

// IDs returns the members of the id-set index.
func (m *Model) IDs(ctx context.Context) ([]string, error) {
	ids, _, err := m.readIndex(ctx)
	return ids, err
}

// Exists reports index membership. Existence is defined at the index level,
// not by attribute presence.
func (m *Model) Exists(ctx context.Context, id string) (bool, error) {
	ids, _, err := m.readIndex(ctx)
	if err != nil {
		return false, err
	}
	for _, member := range ids {
		if member == id {
			return true, nil
		}
	}
	return false, nil
}

// Read returns the attribute hash and tag set for id. Unknown ids read back
// empty rather than failing; callers distinguish existence via Exists or IDs.
func (m *Model) Read(ctx context.Context, id string) (map[string]string, []string, error) {
	attrs := make(map[string]string)
	value, _, ok, err := m.kv.Get(ctx, m.attrKey(id))
	if err != nil {
		return nil, nil, err
	}
	if ok {
		if err := json.Unmarshal(value, &attrs); err != nil {
			return nil, nil, fmt.Errorf("decode attrs for %s: %w", id, err)
		}
	}

	var tags []string
	value, _, ok, err = m.kv.Get(ctx, m.tagKey(id))
	if err != nil {
		return nil, nil, err
	}
	if ok {
		if err := json.Unmarshal(value, &tags); err != nil {
			return nil, nil, fmt.Errorf("decode tags for %s: %w", id, err)
		}
	}
	return attrs, tags, nil
}

// Create adds id to the index and writes its attribute hash and tag set as
// one atomic unit, guarded on the index revision.
func (m *Model) Create(ctx context.Context, id string, attrs map[string]string, tags []string) error {
	ids, rev, err := m.readIndex(ctx)
	if err != nil {
		return err
	}
	for _, member := range ids {
		if member == id {
			return fmt.Errorf("id %s already indexed", id)
		}
	}
	ids = append(ids, id)
	sort.Strings(ids)

	indexVal, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	attrVal, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	tagVal, err := json.Marshal(normalizeSet(tags))
	if err != nil {
		return err
	}

	return m.kv.Txn(ctx,
		[]Guard{{Key: m.indexKey, Rev: rev}},
		[]Op{
			Put(m.indexKey, indexVal),
			Put(m.attrKey(id), attrVal),
			Put(m.tagKey(id), tagVal),
		})
}

// Write merges attrs into the attribute hash (absent fields stay untouched)
// and, when tags is non-nil, replaces the tag set wholesale. Both writes land
// in one transaction. Concurrent attribute writes race last-write-wins.
func (m *Model) Write(ctx context.Context, id string, attrs map[string]string, tags []string) error {
	current, _, err := m.Read(ctx, id)
	if err != nil {
		return err
	}
	for field, value := range attrs {
		current[field] = value
	}

	attrVal, err := json.Marshal(current)
	if err != nil {
		return err
	}
	ops := []Op{Put(m.attrKey(id), attrVal)}

	if tags != nil {
		tagVal, err := json.Marshal(normalizeSet(tags))
		if err != nil {
			return err
		}
		ops = append(ops, Put(m.tagKey(id), tagVal))
	}
	return m.kv.Txn(ctx, nil, ops)
}

// Delete removes id from the index and deletes its attribute hash and tag set
// as one transaction guarded on the index revision, so a concurrent
// structural change forces a retry instead of racing. Stray attribute or tag
// records are cleaned even when the id is no longer indexed.
func (m *Model) Delete(ctx context.Context, id string) error {
	ids, rev, err := m.readIndex(ctx)
	if err != nil {
		return err
	}
	remaining := make([]string, 0, len(ids))
	for _, member := range ids {
		if member != id {
			remaining = append(remaining, member)
		}
	}

	indexVal, err := json.Marshal(remaining)
	if err != nil {
		return err
	}
	return m.kv.Txn(ctx,
		[]Guard{{Key: m.indexKey, Rev: rev}},
		[]Op{
			Put(m.indexKey, indexVal),
			Del(m.attrKey(id)),
			Del(m.tagKey(id)),
		})
}

// normalizeSet dedupes and sorts a tag collection so stored sets compare
// byte-for-byte. A nil input normalizes to the empty set.
func normalizeSet(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
