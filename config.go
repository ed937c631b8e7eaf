package marker

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/yamf-go/op-marker/flags"
	"github.com/yamf-go/op-marker/types"
)

// Config holds the application configuration
type Config struct {
	Runner                 string
	CheckClass             string
	Classpath              []string
	Dialect                types.Dialect
	JavaBinary             string
	ReportsRoot            string
	MarkingScheme          string        // Empty when no marking scheme is configured
	LogDir                 string        // Directory to store per-run output
	RunInterval            time.Duration // Interval between runs
	RunOnce                bool          // Indicates if the service should exit after one run
	ClasspathIsolate       string        // Classpath marker moved to the end on Windows
	WindowsClasspathCompat bool          // Reproduce the legacy doubled separator on Windows
	FailOnFailures         bool          // Exit with code 1 when a marked check fails in run-once mode
	Serve                  bool          // Serve healthz, results and metrics over HTTP
	HealthzAddr            string
	MetricsConfig          opmetrics.CLIConfig
	Log                    log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	runnerPath := ctx.String(flags.Runner.Name)
	if runnerPath == "" {
		return nil, errors.New("runner path is required")
	}
	checkClass := ctx.String(flags.CheckClass.Name)
	if checkClass == "" {
		return nil, errors.New("check class is required")
	}

	dialect, err := types.ParseDialect(ctx.String(flags.Dialect.Name))
	if err != nil {
		return nil, err
	}

	absRunner, err := filepath.Abs(runnerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for runner '%s': %w", runnerPath, err)
	}

	var absScheme string
	if scheme := ctx.String(flags.MarkingScheme.Name); scheme != "" {
		absScheme, err = filepath.Abs(scheme)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for marking scheme '%s': %w", scheme, err)
		}
	}

	// Get log directory, default to "logs" if not specified
	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	reportsRoot, err := filepath.Abs(ctx.String(flags.ReportsRoot.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for reports root: %w", err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	if runInterval < 0 {
		return nil, fmt.Errorf("run interval must not be negative, got %s", runInterval)
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	return &Config{
		Runner:                 absRunner,
		CheckClass:             checkClass,
		Classpath:              ctx.StringSlice(flags.Classpath.Name),
		Dialect:                dialect,
		JavaBinary:             ctx.String(flags.JavaBinary.Name),
		ReportsRoot:            reportsRoot,
		MarkingScheme:          absScheme,
		LogDir:                 logDir,
		RunInterval:            runInterval,
		RunOnce:                runInterval == 0,
		ClasspathIsolate:       ctx.String(flags.ClasspathIsolate.Name),
		WindowsClasspathCompat: ctx.Bool(flags.WindowsClasspathCompat.Name),
		FailOnFailures:         ctx.Bool(flags.FailOnFailures.Name),
		Serve:                  ctx.Bool(flags.Serve.Name),
		HealthzAddr:            ctx.String(flags.HealthzAddr.Name),
		MetricsConfig:          metricsCfg,
		Log:                    log,
	}, nil
}

// Request is the run request every scheduled run submits
func (c *Config) Request() types.RunRequest {
	return types.RunRequest{
		Runner:     c.Runner,
		CheckClass: c.CheckClass,
		Classpath:  c.Classpath,
		Dialect:    c.Dialect,
	}
}

// MetricsAddr is the listen address of the /metrics server
func (c *Config) MetricsAddr() string {
	return net.JoinHostPort(c.MetricsConfig.ListenAddr, strconv.Itoa(c.MetricsConfig.ListenPort))
}
