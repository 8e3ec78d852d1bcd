package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// MessageHandler attempts to interpret model output as a structured action.
// It returns the action's result and true when the output was routed, or
// ("", false) when the output does not match any recognized template.
type MessageHandler interface {
	HandleMessage(ctx context.Context, content string) (string, bool)
}

// ActionFunc executes one structured action with its decoded arguments.
type ActionFunc func(ctx context.Context, args map[string]any) (string, error)

// ActionRouter routes JSON template messages of the form
// {"request": "<name>", ...} to registered actions.
type ActionRouter struct {
	actions map[string]ActionFunc
}

func NewActionRouter() *ActionRouter {
	return &ActionRouter{actions: make(map[string]ActionFunc)}
}

// Register installs an action under the given request name.
func (r *ActionRouter) Register(name string, fn ActionFunc) {
	r.actions[name] = fn
}

// HandleMessage extracts the first JSON object embedded in content and
// dispatches on its "request" field. Anything that does not decode into a
// known template is left unhandled so the agent can fall back. An action that
// fails still counts as handled; the error text becomes the result so the
// model can react to it instead of the turn dying.
func (r *ActionRouter) HandleMessage(ctx context.Context, content string) (string, bool) {
	obj, ok := extractJSONObject(content)
	if !ok {
		return "", false
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(obj), &args); err != nil {
		return "", false
	}

	name, _ := args["request"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	fn, ok := r.actions[name]
	if !ok {
		logx.Warn().Str("request", name).Msg("unrecognized action request")
		return "", false
	}

	result, err := fn(ctx, args)
	if err != nil {
		logx.Warn().Err(err).Str("request", name).Msg("action failed")
		return fmt.Sprintf("action %q failed: %v", name, err), true
	}
	return result, true
}

// extractJSONObject returns the outermost {...} span in s, if any.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
