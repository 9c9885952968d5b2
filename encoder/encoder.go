package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"mediaworker/logger"
	"mediaworker/models"
	"mediaworker/pipeline"
)

const (
	// DefaultCommand is looked up in PATH when no engine path is configured.
	DefaultCommand = "ffmpeg"

	maxStderrTail = 64 << 10
	maxLineLength = 1 << 20
)

// Destination is where the engine writes its output: either a stream or a local path.
type Destination struct {
	Writer io.Writer
	Path   string
}

// Request describes one engine invocation.
type Request struct {
	Spec   pipeline.Spec
	Input  models.Locator
	Output Destination
	// OnProgress receives telemetry samples; it must not block.
	OnProgress func(Progress)
	Logger     *logger.Entry
}

// Result is the success outcome of an invocation.
type Result struct {
	InputDuration time.Duration
	Processed     time.Duration
	Elapsed       time.Duration
}

// Engine runs one transformation to completion and reports exactly one outcome.
type Engine interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// EngineError is the failure outcome of an invocation. It matches
// models.ErrEngineFailure and the underlying cause with errors.Is.
type EngineError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d: %v", e.ExitCode, e.Err)
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *EngineError) Unwrap() []error {
	return []error{models.ErrEngineFailure, e.Err}
}

// Executor runs ffmpeg as a child process.
type Executor struct {
	path string
}

// NewExecutor returns an executor for the ffmpeg binary at path (or DefaultCommand).
func NewExecutor(path string) *Executor {
	if path == "" {
		path = DefaultCommand
	}
	return &Executor{path: path}
}

// Check verifies that the engine binary can be found.
func (e *Executor) Check() error {
	if _, err := exec.LookPath(e.path); err != nil {
		return fmt.Errorf("engine command '%s' not found: %w", e.path, err)
	}
	return nil
}

// Run starts ffmpeg for the request and blocks until it exits.
func (e *Executor) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Input.Validate(); err != nil {
		return Result{}, err
	}

	output := req.Output.Path
	if req.Output.Writer != nil {
		output = "pipe:1"
	} else if output == "" {
		return Result{}, fmt.Errorf("%w: no output destination", models.ErrInvalidParameters)
	}

	args, err := BuildArgs(req.Spec, req.Input.URL, output)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", models.ErrInvalidParameters, err)
	}

	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Stdout = req.Output.Writer
	cmd.WaitDelay = 10 * time.Second
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, &EngineError{Args: args, ExitCode: -1, Err: err}
	}

	req.Logger.Infof("Starting %s %s", e.path, strings.Join(redactArgs(args), " "))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, &EngineError{Args: args, ExitCode: -1, Err: err}
	}

	tail := &tailBuffer{max: maxStderrTail}
	var tracker progressTracker
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineLength)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		tail.WriteLine(line)
		if p, ok := tracker.observe(line); ok && req.OnProgress != nil {
			req.OnProgress(p)
		}
	}
	if err := scanner.Err(); err != nil {
		// keep draining so the process is not blocked on a full stderr pipe
		io.Copy(io.Discard, stderr)
	}

	waitErr := cmd.Wait()
	res := Result{
		InputDuration: tracker.duration,
		Processed:     tracker.last,
		Elapsed:       time.Since(start),
	}
	if waitErr != nil {
		cause := waitErr
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return res, &EngineError{Args: args, ExitCode: exitCode, Stderr: tail.String(), Err: cause}
	}
	return res, nil
}

// redactArgs strips query strings from urls so presigned credentials stay out of logs.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a
		if !strings.Contains(a, "://") {
			continue
		}
		if u, err := url.Parse(a); err == nil && u.RawQuery != "" {
			u.RawQuery = "REDACTED"
			out[i] = u.String()
		}
	}
	return out
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (b *tailBuffer) WriteLine(line string) {
	b.buf = append(b.buf, line...)
	b.buf = append(b.buf, '\n')
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
