package flags

import (
	"fmt"
	"net"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/yamf-go/op-marker/runner"
	"github.com/yamf-go/op-marker/service"
	"github.com/yamf-go/op-marker/types"
)

const EnvVarPrefix = "OP_MARKER"

var (
	Runner = &cli.StringFlag{
		Name:     "runner",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "RUNNER"),
		Usage:    "Path to the console runner jar (eg. 'junit-platform-console-standalone-1.6.2.jar')",
	}
	CheckClass = &cli.StringFlag{
		Name:     "check-class",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "CHECK_CLASS"),
		Usage:    "Fully qualified name of the class holding the checks",
	}
	Classpath = &cli.StringSliceFlag{
		Name:    "classpath",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CLASSPATH"),
		Usage:   "Classpath entry passed to the runner, in order. Repeat the flag for more entries.",
	}
	Dialect = &cli.StringFlag{
		Name:    "dialect",
		Value:   string(types.DialectJupiter),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DIALECT"),
		Usage:   "Check framework dialect: 'jupiter' (JUnit 5) or 'vintage' (JUnit 4)",
		Action: func(ctx *cli.Context, v string) error {
			return validateDialect(v)
		},
	}
	JavaBinary = &cli.StringFlag{
		Name:    "java-binary",
		Value:   runner.DefaultJavaBinary,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JAVA_BINARY"),
		Usage:   "Path to the Java launcher used to start the runner",
	}
	ReportsRoot = &cli.StringFlag{
		Name:    "reports-root",
		Value:   runner.DefaultReportsRoot,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORTS_ROOT"),
		Usage:   "Directory that receives one timestamped report directory per run",
	}
	MarkingScheme = &cli.StringFlag{
		Name:    "marking-scheme",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MARKING_SCHEME"),
		Usage:   "Path to the marking scheme file (eg. 'marking.yaml'). Without it every check is unmarked.",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_DIR"),
		Usage:   "Directory to store per-run console, details and results files",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	ClasspathIsolate = &cli.StringFlag{
		Name:    "classpath-isolate",
		Value:   runner.DefaultClasspathMarker,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CLASSPATH_ISOLATE"),
		Usage:   "On Windows, classpath entries containing this text are moved to the end",
	}
	WindowsClasspathCompat = &cli.BoolFlag{
		Name:    "windows-classpath-compat",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WINDOWS_CLASSPATH_COMPAT"),
		Usage:   "Reproduce the legacy Windows classpath, including its doubled separator",
	}
	FailOnFailures = &cli.BoolFlag{
		Name:    "fail-on-failures",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ON_FAILURES"),
		Usage:   "Exit with code 1 in run-once mode when any marked check fails",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE"),
		Usage:   "Serve /healthz and /results, and /metrics on the metrics address",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   net.JoinHostPort(service.HealthzHost, service.HealthzPort),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Listen address of the healthz server when --serve is set",
	}
)

var requiredFlags = []cli.Flag{
	Runner,
	CheckClass,
}

var optionalFlags = []cli.Flag{
	Classpath,
	Dialect,
	JavaBinary,
	ReportsRoot,
	MarkingScheme,
	LogDir,
	RunInterval,
	ClasspathIsolate,
	WindowsClasspathCompat,
	FailOnFailures,
	Serve,
	HealthzAddr,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}

func validateDialect(v string) error {
	_, err := types.ParseDialect(v)
	return err
}
