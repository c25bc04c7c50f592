package services

import (
	"time"

	"github.com/archview/archview/resolve"
)

// DiagramVersion is an immutable snapshot pairing one repaired diagram source
// with the node metadata generated in the same response, plus the originating
// prompt. Versions are never mutated: a new generation supersedes the active
// version by reference and old versions stay browsable.
//
// Precondition for callers: Nodes must only ever be resolved against this
// version's DiagramSource. The two artifacts come from one generation and are
// never mixed across generations.
type DiagramVersion struct {
	ID            string               `json:"id"`
	Prompt        string               `json:"prompt"`
	Explanation   string               `json:"explanation"`
	DiagramSource string               `json:"diagramSource"`
	Nodes         []resolve.NodeRecord `json:"nodes"`
	CreatedAt     time.Time            `json:"createdAt"`
}
