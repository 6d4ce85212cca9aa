package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Requirement is a recursive boolean expression evaluated against a node.
// It is built per request and never persisted. A nil Requirement matches
// every node.
//
// The type set is closed: leaf equality tests on id, url and tag, plus the
// not/and/or combinators.
type Requirement interface {
	match(n *Node) bool
}

// IDIs matches nodes whose id equals the value.
type IDIs string

// URLIs matches nodes whose url equals the value.
type URLIs string

// TagIs matches nodes whose tag set contains the value.
type TagIs string

// Not negates its sub-requirement.
type Not struct {
	Sub Requirement
}

// And matches when every sub-requirement matches. An empty And matches.
type And []Requirement

// Or matches when any sub-requirement matches. An empty Or does not match.
type Or []Requirement

func (r IDIs) match(n *Node) bool  { return n.ID == string(r) }
func (r URLIs) match(n *Node) bool { return n.URL == string(r) }
func (r TagIs) match(n *Node) bool { return n.HasTag(string(r)) }

func (r Not) match(n *Node) bool { return !Matches(n, r.Sub) }

func (r And) match(n *Node) bool {
	for _, sub := range r {
		if !Matches(n, sub) {
			return false
		}
	}
	return true
}

func (r Or) match(n *Node) bool {
	for _, sub := range r {
		if Matches(n, sub) {
			return true
		}
	}
	return false
}

// Matches reports whether node n satisfies requirement r. It is pure: no side
// effects, recursion depth bounded by the requirement tree.
func Matches(n *Node, r Requirement) bool {
	if r == nil {
		return true
	}
	return r.match(n)
}

// ParseRequirement decodes the wire form of a requirement, a recursive
// two-element array:
//
//	["id", "..."] ["url", "..."] ["tag", "..."]
//	["not", R]    ["and", [R...]] ["or", [R...]]
//
// Empty or null input yields a nil requirement.
func ParseRequirement(raw json.RawMessage) (Requirement, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(trimmed, &pair); err != nil {
		return nil, fmt.Errorf("requirement must be an [op, operand] pair: %w", err)
	}
	if len(pair) != 2 {
		return nil, fmt.Errorf("requirement must have 2 elements, got %d", len(pair))
	}

	var op string
	if err := json.Unmarshal(pair[0], &op); err != nil {
		return nil, fmt.Errorf("requirement operator: %w", err)
	}

	switch op {
	case "id", "url", "tag":
		var v string
		if err := json.Unmarshal(pair[1], &v); err != nil {
			return nil, fmt.Errorf("%s requirement operand: %w", op, err)
		}
		switch op {
		case "id":
			return IDIs(v), nil
		case "url":
			return URLIs(v), nil
		default:
			return TagIs(v), nil
		}
	case "not":
		sub, err := ParseRequirement(pair[1])
		if err != nil {
			return nil, err
		}
		return Not{Sub: sub}, nil
	case "and", "or":
		var items []json.RawMessage
		if err := json.Unmarshal(pair[1], &items); err != nil {
			return nil, fmt.Errorf("%s requirement operand must be an array: %w", op, err)
		}
		subs := make([]Requirement, 0, len(items))
		for _, item := range items {
			sub, err := ParseRequirement(item)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		if op == "and" {
			return And(subs), nil
		}
		return Or(subs), nil
	default:
		return nil, fmt.Errorf("unknown requirement operator %q", op)
	}
}
