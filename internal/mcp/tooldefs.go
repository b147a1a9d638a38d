package mcp

import "github.com/mark3labs/mcp-go/mcp"

var convertToolDef = mcp.NewTool("file_convert",
	mcp.WithDescription("Convert a file to another format. Picks the best available conversion tool for the pair."),
	mcp.WithString("input_file", mcp.Required(), mcp.Description("Path to the source file")),
	mcp.WithString("target_format", mcp.Required(), mcp.Description("Target format token, e.g. \"jpg\" or \"csv\"")),
)

var dispatchToolDef = mcp.NewTool("agent_dispatch",
	mcp.WithDescription("Plan an action from a natural-language request. Returns a JSON plan suitable for agent_execute; never executes anything."),
	mcp.WithString("agent", mcp.Required(), mcp.Description("Agent name: convert, organize, summarize, rename, or command")),
	mcp.WithString("query", mcp.Required(), mcp.Description("The user's natural-language request")),
	mcp.WithArray("paths", mcp.Description("File or folder paths giving the request context"),
		mcp.Items(map[string]any{"type": "string"})),
)

var executeToolDef = mcp.NewTool("agent_execute",
	mcp.WithDescription("Execute a JSON plan produced by agent_dispatch."),
	mcp.WithString("plan", mcp.Required(), mcp.Description("The plan as a JSON object string")),
)

var runToolDef = mcp.NewTool("command_run",
	mcp.WithDescription("Run a shell command through the safety filter. Dangerous commands are blocked, not executed."),
	mcp.WithString("command", mcp.Required(), mcp.Description("The shell command to run")),
)
