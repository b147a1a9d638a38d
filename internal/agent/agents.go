// Package agent implements the LLM-backed dispatch/execute layer: named
// prompt templates, request context building, plan parsing, and plan
// execution.
package agent

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	verrors "github.com/valet-cli/valet/internal/errors"
)

//go:embed prompts/*.md
var promptFS embed.FS

// agentsDirEnv overrides the embedded prompts with a directory of .md files,
// for iterating on prompt wording without rebuilding.
const agentsDirEnv = "VALET_AGENTS_DIR"

// Agent names one user intent. The set is closed.
type Agent string

const (
	AgentConvert   Agent = "convert"
	AgentOrganize  Agent = "organize"
	AgentSummarize Agent = "summarize"
	AgentRename    Agent = "rename"
	AgentCommand   Agent = "command"
)

// Agents lists every valid agent, in help-output order.
func Agents() []Agent {
	return []Agent{AgentConvert, AgentOrganize, AgentSummarize, AgentRename, AgentCommand}
}

// ParseAgent validates a user-supplied agent name.
func ParseAgent(name string) (Agent, error) {
	a := Agent(strings.ToLower(strings.TrimSpace(name)))
	switch a {
	case AgentConvert, AgentOrganize, AgentSummarize, AgentRename, AgentCommand:
		return a, nil
	}
	names := make([]string, 0, len(Agents()))
	for _, known := range Agents() {
		names = append(names, string(known))
	}
	return "", verrors.NewInvalidRequest(
		fmt.Sprintf("unknown agent %q; valid agents: %s", name, strings.Join(names, ", ")))
}

// loadPrompt returns the instruction template for an agent. The override
// directory wins when it holds a matching file; a missing or unknown agent
// gets a generic fallback so dispatch can still answer.
func loadPrompt(name string) string {
	file := name + ".md"

	if dir := os.Getenv(agentsDirEnv); dir != "" {
		if data, err := os.ReadFile(filepath.Join(dir, file)); err == nil {
			return string(data)
		}
	}
	if data, err := promptFS.ReadFile("prompts/" + file); err == nil {
		return string(data)
	}
	return fmt.Sprintf(
		"You are the %q assistant. Respond with a single valid JSON object "+
			"containing an \"action\" field and an \"explanation\" field.", name)
}
