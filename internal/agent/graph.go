// Package agent implements the reasoning graph that turns a farmer's
// question into an answer. A supervisor step routes each question to a
// specialist (soil/crop, market, financial), the specialist calls data
// tools as needed, and a final synthesis step writes the user-facing
// reply from the accumulated conversation.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/nextharvest/agribot/internal/providers"
	"github.com/nextharvest/agribot/internal/sessions"
	"github.com/nextharvest/agribot/internal/tools"
)

// Runner executes the supervisor graph for one message at a time.
type Runner struct {
	provider      providers.Provider
	model         string
	maxIterations int
	maxTokens     int
	temperature   float64

	tools      *tools.Registry
	threads    *sessions.Manager
	activeRuns atomic.Int32
}

// Config configures a new Runner.
type Config struct {
	Provider      providers.Provider
	Model         string
	MaxIterations int
	MaxTokens     int
	Temperature   float64
	Tools         *tools.Registry
	Threads       *sessions.Manager
}

func NewRunner(cfg Config) *Runner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 5
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Threads == nil {
		cfg.Threads = sessions.NewManager()
	}
	if cfg.Tools == nil {
		cfg.Tools = tools.NewRegistry()
	}
	return &Runner{
		provider:      cfg.Provider,
		model:         cfg.Model,
		maxIterations: cfg.MaxIterations,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		tools:         cfg.Tools,
		threads:       cfg.Threads,
	}
}

// ActiveRuns reports the number of currently executing runs.
func (r *Runner) ActiveRuns() int {
	return int(r.activeRuns.Load())
}

// Run processes one question on a conversation thread and returns the
// synthesized answer. The thread's history is only updated after the
// run completes, so a failed run leaves the thread untouched.
func (r *Runner) Run(ctx context.Context, threadKey, question string) (string, error) {
	r.activeRuns.Add(1)
	defer r.activeRuns.Add(-1)

	history := r.threads.History(threadKey)

	// Working message list for this run: prior turns plus the new question.
	messages := make([]providers.Message, 0, len(history)+4)
	messages = append(messages, history...)
	messages = append(messages, providers.Message{Role: "user", Content: question})

	route, err := r.route(ctx, question)
	if err != nil {
		return "", fmt.Errorf("supervisor routing failed: %w", err)
	}
	slog.Info("supervisor routed", "thread", threadKey, "node", route)

	if route != nodeFinalAnswer {
		messages, err = r.runSpecialist(ctx, route, messages)
		if err != nil {
			return "", err
		}
	}

	answer, err := r.synthesize(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("answer synthesis failed: %w", err)
	}

	r.threads.AddMessage(threadKey, providers.Message{Role: "user", Content: question})
	r.threads.AddMessage(threadKey, providers.Message{Role: "assistant", Content: answer})

	return answer, nil
}

// route asks the model which specialist should handle the question.
// The supervisor call carries no tools and no history; it sees only
// the question.
func (r *Runner) route(ctx context.Context, question string) (string, error) {
	resp, err := r.provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "user", Content: fmt.Sprintf(supervisorPrompt, question)},
		},
		Model: r.model,
		Options: map[string]interface{}{
			"max_tokens":  64,
			"temperature": 0.0,
		},
	})
	if err != nil {
		return "", err
	}
	return normalizeRoute(resp.Content), nil
}

// runSpecialist runs one specialist node: the model sees the
// conversation plus a specialist system prompt and may call tools.
// Tool results are appended as role=tool messages and the model is
// called again, up to the iteration cap. The returned message list
// carries everything the synthesis step needs.
func (r *Runner) runSpecialist(ctx context.Context, node string, messages []providers.Message) ([]providers.Message, error) {
	system := providers.Message{Role: "system", Content: specialistPrompts[node]}
	working := append([]providers.Message{system}, messages...)

	for iteration := 1; iteration <= r.maxIterations; iteration++ {
		resp, err := r.provider.Chat(ctx, providers.ChatRequest{
			Messages: working,
			Tools:    r.tools.Definitions(),
			Model:    r.model,
			Options: map[string]interface{}{
				"max_tokens":  r.maxTokens,
				"temperature": r.temperature,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("%s call failed (iteration %d): %w", node, iteration, err)
		}

		if len(resp.ToolCalls) == 0 {
			if resp.Content != "" {
				msg := providers.Message{Role: "assistant", Content: resp.Content}
				working = append(working, msg)
				messages = append(messages, msg)
			}
			break
		}

		assistantMsg := providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		working = append(working, assistantMsg)
		messages = append(messages, assistantMsg)

		for _, tc := range resp.ToolCalls {
			argsJSON, _ := json.Marshal(tc.Arguments)
			slog.Info("tool call", "node", node, "tool", tc.Name, "args_len", len(argsJSON))

			result := r.tools.Execute(ctx, tc.Name, tc.Arguments)
			if result.IsError {
				slog.Warn("tool error", "node", node, "tool", tc.Name, "error", truncateStr(result.ForLLM, 200))
			}

			toolMsg := providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: tc.ID,
			}
			working = append(working, toolMsg)
			messages = append(messages, toolMsg)
		}
	}

	return messages, nil
}

// synthesize writes the final user-facing answer from the accumulated
// conversation. No tools are offered here.
func (r *Runner) synthesize(ctx context.Context, messages []providers.Message) (string, error) {
	working := append([]providers.Message{{Role: "system", Content: synthesisPrompt}}, messages...)

	resp, err := r.provider.Chat(ctx, providers.ChatRequest{
		Messages: working,
		Model:    r.model,
		Options: map[string]interface{}{
			"max_tokens":  r.maxTokens,
			"temperature": r.temperature,
		},
	})
	if err != nil {
		return "", err
	}
	if resp.Content == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}
	return resp.Content, nil
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
