package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arohner/shale/pkg/model"
	"github.com/arohner/shale/pkg/store"
)

// Tracker is the store-backed session collaborator. The pool only ever counts
// sessions; create/release/purge exist for the session tier and operators.
type Tracker struct {
	kv store.KV
}

func NewTracker(kv store.KV) *Tracker {
	return &Tracker{kv: kv}
}

func sessionKey(nodeID, sessionID string) string {
	return store.SessionKeyPrefix + nodeID + "/" + sessionID
}

// Create records a new session occupying a capacity slot on nodeID.
func (t *Tracker) Create(ctx context.Context, nodeID, browser string) (*model.Session, error) {
	s := &model.Session{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		Browser:   browser,
		CreatedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if err := t.kv.Txn(ctx, nil, []store.Op{store.Put(sessionKey(nodeID, s.ID), value)}); err != nil {
		return nil, err
	}
	return s, nil
}

// Release soft-deletes a session. The record keeps occupying capacity until
// purged, closing the window where a just-released session could be
// double-booked.
func (t *Tracker) Release(ctx context.Context, nodeID, sessionID string) error {
	key := sessionKey(nodeID, sessionID)
	value, _, ok, err := t.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s not found on node %s", sessionID, nodeID)
	}

	var s model.Session
	if err := json.Unmarshal(value, &s); err != nil {
		return fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	s.SoftDeleted = true
	updated, err := json.Marshal(&s)
	if err != nil {
		return err
	}
	return t.kv.Txn(ctx, nil, []store.Op{store.Put(key, updated)})
}

// Purge removes a session record entirely, freeing its capacity slot.
func (t *Tracker) Purge(ctx context.Context, nodeID, sessionID string) error {
	return t.kv.Txn(ctx, nil, []store.Op{store.Del(sessionKey(nodeID, sessionID))})
}

// SessionCount counts every session attributed to nodeID, soft-deleted
// included.
func (t *Tracker) SessionCount(ctx context.Context, nodeID string) (int, error) {
	entries, err := t.kv.List(ctx, store.SessionKeyPrefix+nodeID+"/")
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
