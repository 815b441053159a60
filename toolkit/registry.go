package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kodeflux/agentcore/internal/util"
	"github.com/kodeflux/agentcore/model"
	"github.com/tidwall/gjson"
)

// retryHint is appended to every error string fed back to the model, nudging
// it toward a different approach rather than repeating the same call.
const retryHint = "\n\n[Analyze the error above and try a different approach.]"

// Registry holds the set of tools available to the agent loop for a given
// run and renders every failure mode as a conversational string the model
// can react to, per the tool-error propagation policy.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any existing tool registered under the
// same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the OpenAI-function-style schema list for every
// registered tool, sorted by name for deterministic prompt construction.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs the named tool against rawArguments (a JSON object, possibly
// itself JSON-encoded as a string) and always returns a string: the tool's
// result, or a fixed "Error: ..." message with the retry hint appended.
func (r *Registry) Execute(ctx context.Context, name string, rawArguments string) string {
	t, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("Error: Tool '%s' not found. Available: %s", name, strings.Join(r.names(), ", "))
	}

	args, err := parseArguments(rawArguments)
	if err != nil {
		return fmt.Sprintf("Error: Invalid parameters for tool '%s': %s%s", name, err.Error(), retryHint)
	}

	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		return fmt.Sprintf("Error: Invalid parameters for tool '%s': %s%s", name, err.Error(), retryHint)
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %s%s", name, err.Error(), retryHint)
	}
	if strings.HasPrefix(result, "Error") {
		return result + retryHint
	}
	return result
}

func (r *Registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseArguments defensively parses a tool-call argument payload that may
// arrive as a plain JSON object or as a JSON-encoded string wrapping one
// (some providers double-encode arguments).
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, nil
	}

	if gjson.Valid(raw) {
		parsed := gjson.Parse(raw)
		if parsed.Type == gjson.String {
			var nested map[string]any
			if err := json.Unmarshal([]byte(parsed.String()), &nested); err == nil {
				return nested, nil
			}
		}
	}

	return nil, fmt.Errorf("malformed JSON arguments")
}
