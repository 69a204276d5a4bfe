package core

// Chunk is a streaming fragment of a node's output. Chunks from one node are
// strictly ordered and their concatenated Content equals the node's final
// output content. When a stream interleaves several nodes (nested agents),
// each chunk carries the producing node's id and a separator chunk is emitted
// exactly when the producing node changes, so consumers can detect agent
// switches mid-stream.
type Chunk struct {
	NodeID    string `json:"node_id"`             // Id of the node that produced this fragment
	Content   string `json:"content"`             // Content delta
	Role      Role   `json:"role,omitempty"`      // Role of the final message this contributes to
	Separator bool   `json:"separator,omitempty"` // True for synthetic node-switch markers
	Final     bool   `json:"final,omitempty"`     // True on the last chunk of the producing node
}

// NewSeparatorChunk builds the synthetic marker inserted between chunks of
// different producing nodes. Its content is a newline so plain-text consumers
// still render agent switches readably.
func NewSeparatorChunk(nodeID string) Chunk {
	return Chunk{NodeID: nodeID, Content: "\n", Separator: true}
}
