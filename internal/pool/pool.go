package pool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/arohner/shale/internal/provider"
	"github.com/arohner/shale/pkg/model"
	"github.com/arohner/shale/pkg/store"
)

// Attribute hash fields.
const (
	attrURL         = "url"
	attrMaxSessions = "max-sessions"
)

var (
	// ErrNotFound is returned when an id is not a member of the node index.
	ErrNotFound = errors.New("pool: no such node")

	// ErrURLRegistered is returned by Create when the url already belongs to
	// a persisted node. Duplicate urls would otherwise surface as arbitrary
	// destroys during reconciliation.
	ErrURLRegistered = errors.New("pool: url already registered")
)

// SessionCounter reports how many sessions, soft-deleted included, currently
// occupy a node. It is the pool's only view into the session tier.
type SessionCounter interface {
	SessionCount(ctx context.Context, nodeID string) (int, error)
}

// NodePool coordinates the persisted node set, the live provider set and
// session capacity. It holds no node state of its own: every read goes to the
// store, so any number of coordinator processes can share one fleet.
type NodePool struct {
	nodes              *store.Model
	provider           provider.Provider
	sessions           SessionCounter
	defaultMaxSessions int

	// refreshMu serializes Refresh within this process only; cross-process
	// races fall through to the store's guarded transactions.
	refreshMu sync.Mutex
}

// New builds the pool aggregate. Constructed once per process at startup.
func New(kv store.KV, prov provider.Provider, sessions SessionCounter, defaultMaxSessions int) *NodePool {
	return &NodePool{
		nodes:              store.NewModel(kv, store.NodeIndexKey, store.NodeAttrKeyTmpl, store.NodeTagKeyTmpl),
		provider:           prov,
		sessions:           sessions,
		defaultMaxSessions: defaultMaxSessions,
	}
}

// Exists reports whether id is a member of the node index.
func (p *NodePool) Exists(ctx context.Context, id string) (bool, error) {
	return p.nodes.Exists(ctx, id)
}

// View reads the view model for id, or ErrNotFound when id is not indexed.
func (p *NodePool) View(ctx context.Context, id string) (*model.Node, error) {
	exists, err := p.nodes.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return p.view(ctx, id)
}

// view reads without the index membership check.
func (p *NodePool) view(ctx context.Context, id string) (*model.Node, error) {
	attrs, tags, err := p.nodes.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	node := &model.Node{
		ID:          id,
		URL:         attrs[attrURL],
		Tags:        tags,
		MaxSessions: p.defaultMaxSessions,
	}
	if raw, ok := attrs[attrMaxSessions]; ok {
		maxSessions, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("node %s: bad max-sessions %q: %w", id, raw, err)
		}
		node.MaxSessions = maxSessions
	}
	return node, nil
}

// Views reads the view models of every indexed node.
func (p *NodePool) Views(ctx context.Context) ([]*model.Node, error) {
	ids, err := p.nodes.IDs(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*model.Node, 0, len(ids))
	for _, id := range ids {
		node, err := p.view(ctx, id)
		if err != nil {
			return nil, err
		}
		views = append(views, node)
	}
	return views, nil
}

// ViewFromURL returns the node whose url equals url, or nil when none does.
// Absence is an expected outcome, not an error.
func (p *NodePool) ViewFromURL(ctx context.Context, url string) (*model.Node, error) {
	views, err := p.Views(ctx)
	if err != nil {
		return nil, err
	}
	for _, node := range views {
		if node.URL == url {
			return node, nil
		}
	}
	return nil, nil
}

// Create registers a new node. The url's hostname is resolved before storage,
// maxSessions falls back to the pool default when non-positive, and the index
// add plus attribute and tag writes land as one atomic unit.
func (p *NodePool) Create(ctx context.Context, rawURL string, tags []string, maxSessions int) (*model.Node, error) {
	url, err := NormalizeURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	existing, err := p.ViewFromURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrURLRegistered, url)
	}

	if maxSessions <= 0 {
		maxSessions = p.defaultMaxSessions
	}
	id := uuid.NewString()
	attrs := map[string]string{
		attrURL:         url,
		attrMaxSessions: strconv.Itoa(maxSessions),
	}
	if err := p.nodes.Create(ctx, id, attrs, tags); err != nil {
		return nil, err
	}
	log.Printf("[Pool] Created node %s (%s)", id, url)
	return p.view(ctx, id)
}

// Modify merge-writes the supplied fields and returns the refreshed view.
// Nil patch fields are left untouched; a non-nil empty tag slice clears the
// tag set.
func (p *NodePool) Modify(ctx context.Context, id string, patch model.NodePatch) (*model.Node, error) {
	exists, err := p.nodes.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	attrs := make(map[string]string)
	if patch.URL != nil {
		url, err := NormalizeURL(ctx, *patch.URL)
		if err != nil {
			return nil, err
		}
		attrs[attrURL] = url
	}
	if patch.MaxSessions != nil {
		if *patch.MaxSessions <= 0 {
			return nil, fmt.Errorf("max-sessions must be positive, got %d", *patch.MaxSessions)
		}
		attrs[attrMaxSessions] = strconv.Itoa(*patch.MaxSessions)
	}

	var tags []string
	if patch.Tags != nil {
		tags = *patch.Tags
		if tags == nil {
			tags = []string{}
		}
	}

	if len(attrs) > 0 || patch.Tags != nil {
		if err := p.nodes.Write(ctx, id, attrs, tags); err != nil {
			return nil, err
		}
	}
	return p.view(ctx, id)
}

// Destroy tears down any live infrastructure behind id's url and deletes the
// persisted record. The record is deleted even when the node is not live or
// the provider removal fails; provider errors are reported to the operator,
// never allowed to block cleanup.
func (p *NodePool) Destroy(ctx context.Context, id string) error {
	attrs, _, err := p.nodes.Read(ctx, id)
	if err != nil {
		return err
	}
	if url := attrs[attrURL]; url != "" {
		p.removeLive(ctx, url)
	}
	if err := p.nodes.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[Pool] Destroyed node %s", id)
	return nil
}

// removeLive asks the provider to tear down url when it is currently live.
func (p *NodePool) removeLive(ctx context.Context, url string) {
	live, err := p.provider.ListLiveNodes(ctx)
	if err != nil {
		log.Printf("[Pool] Skipping infrastructure removal for %s: listing live nodes: %v", url, err)
		return
	}
	for _, liveURL := range live {
		if liveURL != url {
			continue
		}
		if err := p.provider.Remove(ctx, url); err != nil {
			log.Printf("[Pool] Failed to remove live node %s: %v", url, err)
		}
		return
	}
}

// Refresh reconciles the persisted node set with the provider's live set:
// live urls with no record are registered with default capacity, registered
// urls that are no longer live are destroyed. A failed discovery call aborts
// the whole pass rather than reconciling against a partial live set.
func (p *NodePool) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	rawLive, err := p.provider.ListLiveNodes(ctx)
	if err != nil {
		return fmt.Errorf("refresh aborted: listing live nodes: %w", err)
	}
	liveSet := make(map[string]bool, len(rawLive))
	for _, raw := range rawLive {
		if raw == "" {
			continue
		}
		url, err := NormalizeURL(ctx, raw)
		if err != nil {
			log.Printf("[Pool] Skipping live node with bad url %q: %v", raw, err)
			continue
		}
		liveSet[url] = true
	}

	views, err := p.Views(ctx)
	if err != nil {
		return err
	}
	registered := make(map[string]bool, len(views))
	for _, node := range views {
		if node.URL != "" {
			registered[node.URL] = true
		}
	}

	for url := range liveSet {
		if registered[url] {
			continue
		}
		if _, err := p.Create(ctx, url, nil, 0); err != nil {
			return fmt.Errorf("refresh: register %s: %w", url, err)
		}
	}

	// One arbitrary record per stale url per pass; repeated passes converge
	// on removing every duplicate.
	destroyed := make(map[string]bool)
	for _, node := range views {
		if node.URL == "" || liveSet[node.URL] || destroyed[node.URL] {
			continue
		}
		destroyed[node.URL] = true
		if err := p.Destroy(ctx, node.ID); err != nil {
			return fmt.Errorf("refresh: destroy %s: %w", node.ID, err)
		}
	}
	return nil
}
