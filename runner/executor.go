package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"github.com/yamf-go/op-marker/metrics"
	"github.com/yamf-go/op-marker/types"
)

// legacyOptionsDeprecatedIn is the first runner release that deprecates single-dash options
const legacyOptionsDeprecatedIn = "v1.10.0"

var runnerVersionPattern = regexp.MustCompile(`-(\d+\.\d+(?:\.\d+)?)\.jar$`)

// ExecutorConfig configures how the external runner is launched
type ExecutorConfig struct {
	Log             log.Logger
	JavaBinary      string
	WorkDir         string
	ReportsRoot     string
	Platform        Platform
	ClasspathMarker string
	ClasspathCompat bool
	PathSeparator   string
	CmdBuilder      func(name string, arg ...string) *exec.Cmd
	Now             func() time.Time
}

// Invocation is what one runner process produced
type Invocation struct {
	Args      []string
	Console   string
	ReportDir string
	ExitCode  int
	Duration  time.Duration
}

// Executor launches the external runner and streams its console output.
// An invocation blocks until the process exits and both output streams are drained.
type Executor struct {
	log    log.Logger
	cfg    ExecutorConfig
	tracer trace.Tracer
}

// NewExecutor creates an executor, filling in defaults for unset fields
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.JavaBinary == "" {
		cfg.JavaBinary = DefaultJavaBinary
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.ReportsRoot == "" {
		cfg.ReportsRoot = DefaultReportsRoot
	}
	if cfg.Platform == "" {
		cfg.Platform = HostPlatform()
	}
	if cfg.ClasspathMarker == "" {
		cfg.ClasspathMarker = DefaultClasspathMarker
	}
	if cfg.PathSeparator == "" {
		cfg.PathSeparator = string(os.PathListSeparator)
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = exec.Command
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Platform != PlatformWindows && cfg.ClasspathCompat {
		cfg.Log.Debug("Classpath compatibility mode only affects Windows hosts", "platform", cfg.Platform)
	}

	return &Executor{
		log:    cfg.Log,
		cfg:    cfg,
		tracer: otel.Tracer("runner executor"),
	}, nil
}

// Invoke runs the runner once for req, passing every lifecycle event to handler as it arrives.
// The caller is expected to have validated req.
// A non-zero exit code is not an error: missing report files are what signal a failed run.
func (e *Executor) Invoke(ctx context.Context, req types.RunRequest, handler EventHandler) (*Invocation, error) {
	_, span := e.tracer.Start(ctx, fmt.Sprintf("invoke %s", req.CheckClass))
	defer span.End()

	runnerPath, err := filepath.Abs(req.Runner)
	if err != nil {
		return nil, fmt.Errorf("resolving runner path: %w", err)
	}
	e.warnOnRunnerVersion(runnerPath)

	reportDir, err := e.createReportDir()
	if err != nil {
		metrics.RecordInvocation("report_dir_error")
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	args := e.buildArgs(runnerPath, reportDir, req)
	span.SetAttributes(
		attribute.String("check_class", req.CheckClass),
		attribute.String("report_dir", reportDir),
	)

	cmd := e.cfg.CmdBuilder(e.cfg.JavaBinary, args...)
	if cmd.Dir == "" {
		cmd.Dir = e.cfg.WorkDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("attaching to runner stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("attaching to runner stderr: %w", err)
	}

	e.log.Info("Launching runner", "check_class", req.CheckClass, "report_dir", reportDir, "platform", e.cfg.Platform)
	e.log.Debug("Runner command", "dir", cmd.Dir, "command", cmd.String())

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.RecordInvocation("spawn_error")
		return nil, fmt.Errorf("starting runner %s: %w", e.cfg.JavaBinary, err)
	}

	console := &consoleBuffer{}
	stderrTail := newTailBuffer(defaultStderrTailBytes)

	var g errgroup.Group
	g.Go(func() error {
		return e.pump(stdout, console, nil, handler)
	})
	g.Go(func() error {
		return e.pump(stderr, console, stderrTail, nil)
	})
	pumpErr := g.Wait()
	waitErr := cmd.Wait()
	duration := time.Since(start)

	inv := &Invocation{
		Args:      args,
		Console:   console.String(),
		ReportDir: reportDir,
		Duration:  duration,
	}

	if pumpErr != nil {
		metrics.RecordInvocation("io_error")
		return nil, fmt.Errorf("reading runner output: %w", pumpErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			metrics.RecordInvocation("wait_error")
			return nil, fmt.Errorf("waiting for runner: %w", waitErr)
		}
		inv.ExitCode = exitErr.ExitCode()
		e.log.Warn("Runner exited with non-zero status", "exit_code", inv.ExitCode,
			"stderr", stderrTail.String(), "stderr_bytes", stderrTail.TotalBytes(), "stderr_truncated", stderrTail.Truncated())
	}

	span.SetAttributes(attribute.Int("exit_code", inv.ExitCode))
	metrics.RecordInvocation("completed")
	e.log.Info("Runner finished", "exit_code", inv.ExitCode, "duration", duration)
	return inv, nil
}

// pump reads r line by line. Protocol lines go to handler and are kept out of the console;
// everything else is stripped of ANSI escapes and appended to console.
func (e *Executor) pump(r io.Reader, console *consoleBuffer, tail io.Writer, handler EventHandler) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			e.consume(strings.TrimRight(line, "\r\n"), console, tail, handler)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (e *Executor) consume(line string, console *consoleBuffer, tail io.Writer, handler EventHandler) {
	if handler != nil {
		ev, ok, err := DecodeEvent(line)
		if err != nil {
			e.log.Warn("Dropping malformed lifecycle event", "line", line, "err", err)
			metrics.RecordErrorDetails("malformed_event", err)
			return
		}
		if ok {
			handler(ev)
			return
		}
	}
	clean := stripansi.Strip(line)
	console.appendLine(clean)
	if tail != nil {
		_, _ = io.WriteString(tail, clean+"\n")
	}
}

// buildArgs returns the launcher arguments for one of three invocation shapes:
// bare, with a classpath, or the Windows form with an adjusted classpath and explicit entry point.
func (e *Executor) buildArgs(runnerPath, reportDir string, req types.RunRequest) []string {
	tail := []string{ReportsDirFlag, reportDir, ClassFlag, req.CheckClass}

	if len(req.Classpath) == 0 {
		return append([]string{JarFlag, runnerPath}, tail...)
	}

	if e.cfg.Platform == PlatformWindows {
		cp := AdjustClasspath(runnerPath, req.Classpath, e.cfg.ClasspathMarker, e.cfg.PathSeparator, e.cfg.ClasspathCompat)
		return append([]string{ClasspathFlag, cp, ConsoleLauncherClass}, tail...)
	}

	cp := strings.Join(req.Classpath, e.cfg.PathSeparator)
	return []string{JarFlag, runnerPath, ReportsDirFlag, reportDir, ClasspathFlag, cp, ClassFlag, req.CheckClass}
}

// createReportDir creates a new directory named after the current time, moving on by one
// millisecond while the name is taken.
func (e *Executor) createReportDir() (string, error) {
	if err := os.MkdirAll(e.cfg.ReportsRoot, 0755); err != nil {
		return "", err
	}
	at := e.cfg.Now()
	for i := 0; i < maxReportDirAttempts; i++ {
		dir := filepath.Join(e.cfg.ReportsRoot, ReportDirName(at))
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return filepath.Abs(dir)
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		at = at.Add(time.Millisecond)
	}
	return "", fmt.Errorf("no free report directory name under %s after %d attempts", e.cfg.ReportsRoot, maxReportDirAttempts)
}

// ReportDirName formats t as yyyy-MM-dd--HH-mm-ss--SSS
func ReportDirName(t time.Time) string {
	return fmt.Sprintf("%s--%03d", t.Format(ReportDirLayout), t.Nanosecond()/int(time.Millisecond))
}

func (e *Executor) warnOnRunnerVersion(runnerPath string) {
	version := RunnerVersion(runnerPath)
	if version == "" {
		return
	}
	if semver.Compare(version, legacyOptionsDeprecatedIn) >= 0 {
		e.log.Warn("Runner version deprecates the single-dash options used to launch it", "runner", filepath.Base(runnerPath), "version", version)
	}
}

// RunnerVersion extracts a semantic version from a runner jar name such as
// junit-platform-console-standalone-1.6.2.jar. It returns "" when there is none.
func RunnerVersion(runnerPath string) string {
	m := runnerVersionPattern.FindStringSubmatch(filepath.Base(runnerPath))
	if m == nil {
		return ""
	}
	v := "v" + m[1]
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}
