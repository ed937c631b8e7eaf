package runner

// Runner invocation constants
const (
	// DefaultJavaBinary is the launcher used to start the runner
	DefaultJavaBinary = "java"

	// DefaultReportsRoot is the folder that holds one report directory per run
	DefaultReportsRoot = ".junit-reports"

	// ReportDirLayout names report directories after the run's start time.
	// Milliseconds are appended separately as "--SSS".
	ReportDirLayout = "2006-01-02--15-04-05"

	// DefaultClasspathMarker identifies the classpath entry moved to the end on Windows
	DefaultClasspathMarker = "spring-mock"

	// ConsoleLauncherClass is the runner entry point used when not launching with -jar
	ConsoleLauncherClass = "org.junit.platform.console.ConsoleLauncher"

	// Runner arguments
	JarFlag        = "-jar"
	ClasspathFlag  = "-cp"
	ReportsDirFlag = "-reports-dir"
	ClassFlag      = "-c"

	// ReportMediaType is the media type of the structured result files
	ReportMediaType = "application/xml"

	// DetailsSeparatorFormat frames each file body in RunResult.Details
	DetailsSeparatorFormat = "======= %s =======\n"

	// maxReportDirAttempts bounds the search for an unused report directory name
	maxReportDirAttempts = 1000
)
