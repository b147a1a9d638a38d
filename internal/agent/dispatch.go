package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/config"
	"github.com/valet-cli/valet/internal/llm"
)

// fallbackExplanationCap truncates raw LLM text carried into a fallback plan.
const fallbackExplanationCap = 300

// Action is a plan's verb. The set is closed; executePlan switches over it
// exhaustively.
type Action string

const (
	ActionNone      Action = "none"
	ActionConvert   Action = "convert"
	ActionResize    Action = "resize"
	ActionOrganize  Action = "organize"
	ActionSummarize Action = "summarize"
	ActionRename    Action = "rename"
	ActionRun       Action = "run"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionNone, ActionConvert, ActionResize, ActionOrganize,
		ActionSummarize, ActionRename, ActionRun:
		return true
	}
	return false
}

// Plan is the JSON contract between dispatch and execute. Fields beyond
// Action and Explanation are action-specific.
type Plan struct {
	Action      Action `json:"action"`
	Explanation string `json:"explanation,omitempty"`

	// convert / resize
	InputFile    string `json:"input_file,omitempty"`
	TargetFormat string `json:"target_format,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`

	// organize
	Folder string              `json:"folder,omitempty"`
	Moves  map[string][]string `json:"plan,omitempty"`

	// summarize
	Files []string `json:"files,omitempty"`
	Style string   `json:"style,omitempty"`

	// rename
	Renames map[string]string `json:"renames,omitempty"`

	// run
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
}

// PlanResult is what dispatch hands back: either a parsed plan or the raw
// text the model produced when it failed to emit JSON. Exactly one of the
// two views is meaningful; Plan() folds the fallback into an action-none
// plan so callers always have valid JSON to print.
type PlanResult struct {
	parsed   *Plan
	fallback string
}

// Ok reports whether the model produced a parseable plan.
func (r PlanResult) Ok() bool { return r.parsed != nil }

// Raw returns the unparseable model text, empty when Ok.
func (r PlanResult) Raw() string { return r.fallback }

// Plan returns the parsed plan, or a fallback {action: none} plan carrying
// the truncated raw text as its explanation.
func (r PlanResult) Plan() *Plan {
	if r.parsed != nil {
		return r.parsed
	}
	text := strings.TrimSpace(r.fallback)
	if len(text) > fallbackExplanationCap {
		text = text[:fallbackExplanationCap]
	}
	return &Plan{Action: ActionNone, Explanation: text}
}

// Dispatcher turns natural-language queries into plans.
type Dispatcher struct {
	cfg config.Config
	log *zap.Logger
	llm *llm.Client
}

func NewDispatcher(cfg config.Config, log *zap.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, log: log, llm: llm.New(cfg, log)}
}

// Dispatch validates the agent name, builds the prompt, queries the model,
// and parses the reply. A model reply that is not JSON is not an error; it
// comes back as a fallback PlanResult. Unknown agents fail before any LLM
// call.
func (d *Dispatcher) Dispatch(ctx context.Context, agentName, query string, paths []string) (PlanResult, error) {
	a, err := ParseAgent(agentName)
	if err != nil {
		return PlanResult{}, err
	}

	prompt := loadPrompt(string(a)) + "\n\n" + buildContext(a, query, paths)
	images := imagePaths(paths)
	d.log.Info("dispatching",
		zap.String("agent", string(a)),
		zap.Int("paths", len(paths)),
		zap.Int("images", len(images)))

	reply := d.llm.Complete(ctx, prompt, images)
	return parsePlanReply(reply), nil
}

// parsePlanReply strips markdown fences and tries to read a plan. Anything
// that does not parse, carries an unknown action, or is an LLM error string
// becomes a fallback.
func parsePlanReply(reply string) PlanResult {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var plan Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil || !plan.Action.Valid() {
		return PlanResult{fallback: reply}
	}
	return PlanResult{parsed: &plan}
}

// MarshalLine renders a plan as the single compact JSON line the dispatch
// command prints to stdout.
func (p *Plan) MarshalLine() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	return string(b), nil
}
