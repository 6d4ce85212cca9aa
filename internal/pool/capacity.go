package pool

import (
	"context"
	"math/rand"

	"github.com/arohner/shale/pkg/model"
)

// UnderCapacity returns the nodes with at least one free session slot. A node
// whose session count equals its ceiling is excluded.
func (p *NodePool) UnderCapacity(ctx context.Context) ([]*model.Node, error) {
	views, err := p.Views(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Node, 0, len(views))
	for _, node := range views {
		count, err := p.sessions.SessionCount(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		if count < node.MaxSessions {
			out = append(out, node)
		}
	}
	return out, nil
}

// Get returns one node chosen uniformly at random among the under-capacity
// nodes matching req, or nil when none match. Random rather than first-match
// so equally eligible nodes share load; an empty result is an expected
// outcome, not an error.
func (p *NodePool) Get(ctx context.Context, req model.Requirement) (*model.Node, error) {
	candidates, err := p.UnderCapacity(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]*model.Node, 0, len(candidates))
	for _, node := range candidates {
		if model.Matches(node, req) {
			matched = append(matched, node)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	// The top-level rand functions are safe for concurrent use.
	return matched[rand.Intn(len(matched))], nil
}
