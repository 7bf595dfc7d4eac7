// Package artifact defines the request and artifact types that flow through
// the generation loop. Everything here is request-scoped: values are built by
// the caller, threaded through one loop invocation, and discarded with it.
package artifact

// ConversationTurn is a single prior exchange supplied for context.
type ConversationTurn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// GenerationRequest describes what the caller wants generated. It is
// constructed once and never mutated by the loop.
type GenerationRequest struct {
	// Instruction is the natural-language description of the desired page.
	Instruction string `json:"instruction"`

	// ContextSnippets are extracted document fragments to ground the content,
	// in the order the caller wants them presented.
	ContextSnippets []string `json:"context_snippets,omitempty"`

	// PriorArtifact is the markup of an earlier artifact the user is editing,
	// empty for a fresh generation.
	PriorArtifact string `json:"prior_artifact,omitempty"`

	// Conversation carries earlier turns of the session, oldest first.
	Conversation []ConversationTurn `json:"conversation,omitempty"`
}

// Artifact is one generated markup candidate.
type Artifact struct {
	// Content is the full HTML document.
	Content string `json:"content"`

	// Iteration records which loop pass produced this candidate, starting at 1.
	Iteration int `json:"iteration"`
}
