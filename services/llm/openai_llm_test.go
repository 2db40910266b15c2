package llm

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")

	_, err := NewOpenAIClient("system prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNewOpenAIClientDefaultsModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "")

	client, err := NewOpenAIClient("system prompt")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.model)
}

func TestNewOpenAIClientHonorsModelEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	client, err := NewOpenAIClient("system prompt")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", client.model)
}

func TestBuildMessagesOrdering(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	client, err := NewOpenAIClient("be grounded")
	require.NoError(t, err)

	client.commitTurn("thread-1", "first question", "first answer")

	messages := client.buildMessages("thread-1", "second question")
	require.Len(t, messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	assert.Equal(t, "be grounded", messages[0].Content)
	assert.Equal(t, "first question", messages[1].Content)
	assert.Equal(t, "first answer", messages[2].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[3].Role)
	assert.Equal(t, "second question", messages[3].Content)
}

func TestBuildMessagesIsolatesThreads(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	client, err := NewOpenAIClient("")
	require.NoError(t, err)

	client.commitTurn("thread-1", "q1", "a1")

	messages := client.buildMessages("thread-2", "fresh question")
	require.Len(t, messages, 1, "a new thread must not inherit another thread's history")
	assert.Equal(t, "fresh question", messages[0].Content)
}

func TestReleaseThreadDropsHistory(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	client, err := NewOpenAIClient("")
	require.NoError(t, err)

	client.commitTurn("thread-1", "q1", "a1")
	client.commitTurn("thread-2", "q2", "a2")

	client.ReleaseThread("thread-1")

	messages := client.buildMessages("thread-1", "again")
	require.Len(t, messages, 1, "a released thread starts over with no history")

	kept := client.buildMessages("thread-2", "again")
	assert.Len(t, kept, 3, "releasing one thread must not touch another")

	// Unknown handles are a no-op.
	client.ReleaseThread("never-seen")
}

func TestCommitTurnTrimsHistory(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	client, err := NewOpenAIClient("")
	require.NoError(t, err)

	for i := 0; i < maxThreadMessages; i++ {
		client.commitTurn("thread-1", "question", "answer")
	}

	client.mu.Lock()
	history := client.threads["thread-1"]
	client.mu.Unlock()

	assert.Len(t, history, maxThreadMessages)
	// Oldest messages drop first: the head of a full history is a user turn.
	assert.Equal(t, openai.ChatMessageRoleUser, history[0].Role)
}
