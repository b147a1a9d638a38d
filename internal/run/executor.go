package run

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/config"
)

// CommandTimeout is the hard wall-clock limit for a spawned process.
const CommandTimeout = 300 * time.Second

// State classifies the outcome of one invocation:
// Pending -> {Blocked | Running -> {Succeeded | Failed | TimedOut}}.
type State string

const (
	StateBlocked   State = "blocked"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Result captures one invocation. Created per call, never persisted.
type Result struct {
	State  State
	Stdout string
	Stderr string
	// Rule names the deny rule that fired; nil unless State is Blocked.
	Rule *Rule
}

// OK reports whether the invocation completed successfully.
func (r Result) OK() bool {
	return r.State == StateSucceeded
}

// Executor runs shell commands and generated scripts with a timeout,
// captured output, and a PATH that prefers the managed local-tool directory.
type Executor struct {
	cfg     config.Config
	log     *zap.Logger
	timeout time.Duration
}

// NewExecutor creates an Executor with the standard timeout.
func NewExecutor(cfg config.Config, log *zap.Logger) *Executor {
	return &Executor{cfg: cfg, log: log, timeout: CommandTimeout}
}

// Shell runs a command through the system shell. The safety filter is
// applied first; a blocked command is never spawned.
func (e *Executor) Shell(ctx context.Context, command string) Result {
	e.log.Info("executing shell command", zap.String("command", command))

	if rule := Check(command); rule != nil {
		e.log.Warn("command blocked",
			zap.String("command", command),
			zap.String("pattern", rule.Pattern),
			zap.String("reason", rule.Reason))
		return Result{State: StateBlocked, Rule: rule}
	}

	return e.spawn(ctx, exec.Command("sh", "-c", command))
}

// Script writes code to a temp file and runs it with a Python interpreter
// (python3, falling back to python). The temp file is always removed.
func (e *Executor) Script(ctx context.Context, code string) Result {
	e.log.Info("executing script", zap.Int("bytes", len(code)))

	interp, err := exec.LookPath("python3")
	if err != nil {
		interp, err = exec.LookPath("python")
	}
	if err != nil {
		return Result{State: StateFailed, Stderr: "no python interpreter found"}
	}

	scriptPath := filepath.Join(os.TempDir(), "valet-"+ulid.MustNew(ulid.Now(), rand.Reader).String()+".py")
	if err := os.WriteFile(scriptPath, []byte(code), 0o600); err != nil {
		return Result{State: StateFailed, Stderr: err.Error()}
	}
	defer os.Remove(scriptPath)

	return e.spawn(ctx, exec.Command(interp, scriptPath))
}

// spawn runs cmd with the timeout and the modified PATH, classifying the
// outcome.
func (e *Executor) spawn(ctx context.Context, cmd *exec.Cmd) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	timed := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...)
	timed.Env = e.env()

	var stdout, stderr bytes.Buffer
	timed.Stdout = &stdout
	timed.Stderr = &stderr

	err := timed.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		e.log.Error("command timed out", zap.Strings("args", cmd.Args))
		return Result{State: StateTimedOut, Stdout: stdout.String(), Stderr: stderr.String()}
	}
	if err != nil {
		e.log.Error("command failed",
			zap.Strings("args", cmd.Args),
			zap.String("stderr", stderr.String()))
		return Result{State: StateFailed, Stdout: stdout.String(), Stderr: stderr.String()}
	}

	return Result{State: StateSucceeded, Stdout: stdout.String(), Stderr: stderr.String()}
}

// env returns the process environment with the managed local-tool directory
// prepended to PATH, so locally installed tools win over system ones.
func (e *Executor) env() []string {
	env := os.Environ()
	for i, kv := range env {
		if len(kv) >= 5 && kv[:5] == "PATH=" {
			env[i] = "PATH=" + e.cfg.BinDir() + string(os.PathListSeparator) + kv[5:]
			return env
		}
	}
	return append(env, "PATH="+e.cfg.BinDir())
}
