package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/logging"
	"github.com/arturoeanton/restaurant-chatbot/internal/metrics"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// FallbackAnswer is returned when the model produces no usable text.
const FallbackAnswer = "I'm sorry, I couldn't generate a response."

const forcedStopInstruction = "You have reached the limit of steps for this question. " +
	"Using only the information gathered so far, give your best final answer to the customer's last question. " +
	"Do not call any tools."

// AgentState is a step of the reasoning loop.
type AgentState string

// Agent states.
const (
	StateStarted    AgentState = "started"
	StateThinking   AgentState = "thinking"
	StateToolCall   AgentState = "tool_call"
	StateFinished   AgentState = "finished"
	StateForcedStop AgentState = "forced_stop"
)

// AgentConfig bounds one agent run.
type AgentConfig struct {
	MaxIterations    int
	MaxExecutionTime time.Duration
	// SynthesisTimeout bounds the final tool-less call made after a forced stop.
	SynthesisTimeout time.Duration
}

// DefaultAgentConfig returns 25 iterations, 60s and a 10s synthesis grace.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations:    25,
		MaxExecutionTime: 60 * time.Second,
		SynthesisTimeout: 10 * time.Second,
	}
}

// AgentResult is the outcome of one run.
type AgentResult struct {
	Answer     string     `json:"answer"`
	State      AgentState `json:"state"`
	Iterations int        `json:"iterations"`
	ToolCalls  int        `json:"tool_calls"`
}

// Agent answers questions by letting a chat model call tools in a bounded loop.
type Agent struct {
	model        port.ChatModel
	sessions     *SessionStore
	systemPrompt string
	tools        map[string]port.Tool
	definitions  []domain.ToolDefinition
	cfg          AgentConfig
	metrics      *metrics.Metrics
}

// NewAgent creates an agent. m may be nil.
func NewAgent(model port.ChatModel, sessions *SessionStore, systemPrompt string, cfg AgentConfig, m *metrics.Metrics, tools ...port.Tool) *Agent {
	def := DefaultAgentConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MaxExecutionTime <= 0 {
		cfg.MaxExecutionTime = def.MaxExecutionTime
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = def.SynthesisTimeout
	}

	a := &Agent{
		model:        model,
		sessions:     sessions,
		systemPrompt: systemPrompt,
		tools:        make(map[string]port.Tool, len(tools)),
		cfg:          cfg,
		metrics:      m,
	}
	for _, t := range tools {
		d := t.Definition()
		a.tools[d.Name] = t
		a.definitions = append(a.definitions, d)
	}
	return a
}

// Answer runs the agent and returns only the final text.
func (a *Agent) Answer(ctx context.Context, sessionID, question string) (string, error) {
	res, err := a.Run(ctx, sessionID, question)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Run answers question in the context of the session transcript, then
// appends the question and the answer to the session.
//
// When the iteration or time budget runs out, one extra call without tools
// asks the model for its best answer from what it has gathered.
func (a *Agent) Run(ctx context.Context, sessionID, question string) (*AgentResult, error) {
	log := logging.WithSession(sessionID)
	messages := a.buildMessages(sessionID, question)

	budgetCtx, cancel := context.WithTimeout(ctx, a.cfg.MaxExecutionTime)
	defer cancel()

	res := &AgentResult{State: StateStarted}
	for res.Iterations < a.cfg.MaxIterations {
		if budgetCtx.Err() != nil {
			break
		}

		res.State = StateThinking
		completion, err := a.model.Complete(budgetCtx, messages, a.definitions)
		res.Iterations++
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("agent: %w", ctx.Err())
			}
			if errors.Is(budgetCtx.Err(), context.DeadlineExceeded) {
				break
			}
			return nil, fmt.Errorf("agent: chat model: %w", err)
		}

		if len(completion.ToolCalls) == 0 {
			res.State = StateFinished
			res.Answer = completion.Content
			break
		}

		res.State = StateToolCall
		messages = append(messages, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range completion.ToolCalls {
			out := a.callTool(budgetCtx, call)
			res.ToolCalls++
			messages = append(messages, domain.Message{
				Role:       domain.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    out,
			})
		}
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("agent: %w", ctx.Err())
	}

	if res.State != StateFinished {
		res.State = StateForcedStop
		log.Warn("agent budget exhausted, forcing final answer",
			"iterations", res.Iterations,
			"max_iterations", a.cfg.MaxIterations,
			"max_execution_time", a.cfg.MaxExecutionTime,
		)
		answer, err := a.synthesize(ctx, messages)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("agent: %w", ctx.Err())
			}
			log.Error("forced final answer failed", "error", err)
		}
		res.Answer = answer
	}

	if strings.TrimSpace(res.Answer) == "" {
		res.Answer = FallbackAnswer
	}

	if a.sessions != nil {
		a.sessions.Append(sessionID, domain.RoleUser, question)
		a.sessions.Append(sessionID, domain.RoleAssistant, res.Answer)
	}

	a.metrics.ObserveAgentRun(res.Iterations, res.State == StateForcedStop)
	log.Info("agent run complete",
		"state", res.State,
		"iterations", res.Iterations,
		"tool_calls", res.ToolCalls,
	)
	return res, nil
}

func (a *Agent) buildMessages(sessionID, question string) []domain.Message {
	messages := []domain.Message{{Role: domain.RoleSystem, Content: a.systemPrompt}}
	if a.sessions != nil {
		for _, turn := range a.sessions.Get(sessionID) {
			messages = append(messages, domain.Message{Role: turn.Role, Content: turn.Content})
		}
	}
	return append(messages, domain.Message{Role: domain.RoleUser, Content: question})
}

// unknownToolLabel groups calls to unregistered tools so model output cannot
// grow the metric label set.
const unknownToolLabel = "unknown"

// callTool runs one tool call and renders its result, or the reason it
// failed, as the observation returned to the model.
func (a *Agent) callTool(ctx context.Context, call domain.ToolCall) string {
	tool, ok := a.tools[call.Name]
	if !ok {
		err := fmt.Errorf("%w %q", port.ErrUnknownTool, call.Name)
		a.metrics.ObserveToolCall(unknownToolLabel, err)
		return fmt.Sprintf("Error: %v. Available tools: %s", err, strings.Join(a.toolNames(), ", "))
	}

	args := strings.TrimSpace(call.Arguments)
	if args == "" {
		args = "{}"
	}
	if !json.Valid([]byte(args)) {
		err := fmt.Errorf("%w: arguments are not valid JSON", port.ErrInvalidArguments)
		a.metrics.ObserveToolCall(call.Name, err)
		return "Error: " + err.Error()
	}

	out, err := tool.Call(ctx, json.RawMessage(args))
	a.metrics.ObserveToolCall(call.Name, err)
	if err != nil {
		return "Error: " + err.Error()
	}
	return out
}

func (a *Agent) synthesize(ctx context.Context, messages []domain.Message) (string, error) {
	synthCtx, cancel := context.WithTimeout(ctx, a.cfg.SynthesisTimeout)
	defer cancel()

	final := make([]domain.Message, len(messages), len(messages)+1)
	copy(final, messages)
	final = append(final, domain.Message{Role: domain.RoleUser, Content: forcedStopInstruction})

	completion, err := a.model.Complete(synthCtx, final, nil)
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	return completion.Content, nil
}

func (a *Agent) toolNames() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
