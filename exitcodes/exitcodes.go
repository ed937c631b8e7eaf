// Package exitcodes defines the exit codes used by op-marker.
package exitcodes

// Exit code constants used by op-marker:
//
// * Success (0): the run completed, or it had failures and --fail-on-failures is unset
// * TestFailure (1): a marked check failed and --fail-on-failures is set
// * RuntimeErr (2): the run could not be carried out (bad configuration, missing report, panics)
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
