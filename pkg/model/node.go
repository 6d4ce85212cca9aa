package model

// Node is the durable record for one browser-automation worker endpoint.
// The store is the single source of truth; this struct is the read projection
// handed back to callers, never a cached copy.
type Node struct {
	ID          string   `json:"id"`           // generated at creation, immutable, never reused
	URL         string   `json:"url"`          // canonical endpoint address, host resolved at write time
	Tags        []string `json:"tags"`         // opaque labels, unordered
	MaxSessions int      `json:"max_sessions"` // capacity ceiling, always positive
}

// HasTag reports whether tag is a member of the node's tag set.
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NodePatch carries the fields of a modify request. A nil field is left
// untouched; a non-nil empty Tags slice clears the tag set.
type NodePatch struct {
	URL         *string   `json:"url,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	MaxSessions *int      `json:"max_sessions,omitempty"`
}
