package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// FragmentCallback receives raw model output fragments in arrival order.
// Fragments are arbitrarily sized and may split words, markers, anything.
// Return an error to abort the stream (e.g. on client disconnect).
type FragmentCallback func(fragment string) error

// StreamClient is the model collaborator: it opens a text-fragment stream for
// one conversation thread. The thread handle is opaque to callers; the client
// uses it to recall prior turns so multi-turn sessions keep their context.
type StreamClient interface {
	StreamConversation(ctx context.Context, threadID, prompt string,
		params GenerationParams, callback FragmentCallback) error
}

// ThreadReleaser is implemented by stream clients that retain per-thread
// state between calls. ReleaseThread discards everything held for the
// handle; the handle must not be streamed on again afterwards. Clients
// whose provider tracks conversation state server-side need not implement
// this.
type ThreadReleaser interface {
	ReleaseThread(threadID string)
}
