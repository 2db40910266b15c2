package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("groundline.llm.openai")

// maxThreadMessages caps the per-thread history kept in memory. Oldest turns
// are dropped first; the system prompt is re-sent on every call regardless.
const maxThreadMessages = 40

// OpenAIClient implements StreamClient on the OpenAI chat completions API.
//
// The provider has no server-side conversation state, so the client keeps an
// in-memory message history per thread handle. A thread handle therefore
// gives conversational continuity for as long as the process lives, which is
// exactly the session lifetime the orchestrator promises.
type OpenAIClient struct {
	client       *openai.Client
	model        string
	systemPrompt string

	mu      sync.Mutex
	threads map[string][]openai.ChatCompletionMessage
}

// NewOpenAIClient builds a client from environment configuration.
// OPENAI_API_KEY is required (with a container-secret file fallback);
// OPENAI_MODEL defaults to gpt-4o-mini.
func NewOpenAIClient(systemPrompt string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from container secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client:       openai.NewClient(apiKey),
		model:        model,
		systemPrompt: systemPrompt,
		threads:      make(map[string][]openai.ChatCompletionMessage),
	}, nil
}

// StreamConversation implements the StreamClient interface.
//
// The prompt is appended to the thread's history, the completion is streamed
// fragment by fragment through callback, and on success both the prompt and
// the full assistant reply are committed to the history. A failed or aborted
// stream commits nothing, so a retried turn does not see a phantom half-turn.
func (o *OpenAIClient) StreamConversation(ctx context.Context, threadID, prompt string,
	params GenerationParams, callback FragmentCallback) error {

	ctx, span := tracer.Start(ctx, "OpenAIClient.StreamConversation")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.String("llm.thread_id", threadID),
	)

	messages := o.buildMessages(threadID, prompt)

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   true,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream open failed")
		slog.Error("OpenAI stream open failed", "error", err, "thread_id", threadID)
		return fmt.Errorf("open completion stream: %w", err)
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stream receive failed")
			return fmt.Errorf("receive completion fragment: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		reply.WriteString(fragment)
		if err := callback(fragment); err != nil {
			// Caller aborted (client disconnect or downstream failure).
			return err
		}
	}

	o.commitTurn(threadID, prompt, reply.String())
	slog.Debug("OpenAI stream complete", "thread_id", threadID, "reply_bytes", reply.Len())
	return nil
}

// buildMessages assembles system prompt + thread history + the new user turn.
func (o *OpenAIClient) buildMessages(threadID, prompt string) []openai.ChatCompletionMessage {
	o.mu.Lock()
	history := o.threads[threadID]
	o.mu.Unlock()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if o.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt,
		})
	}
	messages = append(messages, history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: prompt,
	})
	return messages
}

// ReleaseThread drops the in-memory history for a thread handle.
//
// Called when a session is reset or expires, and after anonymous one-shot
// turns; without it every thread handle would retain its history for the
// process lifetime. Releasing an unknown handle is a no-op.
func (o *OpenAIClient) ReleaseThread(threadID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.threads, threadID)
}

// commitTurn appends a completed user/assistant exchange to the thread
// history, trimming the oldest messages beyond maxThreadMessages.
func (o *OpenAIClient) commitTurn(threadID, prompt, reply string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	history := append(o.threads[threadID],
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
	)
	if len(history) > maxThreadMessages {
		history = history[len(history)-maxThreadMessages:]
	}
	o.threads[threadID] = history
}
