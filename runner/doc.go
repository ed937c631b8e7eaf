// Package runner provides the components that run a batch of marked checks and turn
// the outcome into result records.
//
// The main components are:
//   - Executor: launches the external check runner and streams its console output
//   - Listener: consumes check lifecycle events and builds one ResultRecord per marked check
//   - Collector: aggregates result records and orders them by check identity
//   - ReportParser: reads the runner's structured result files into a RunResult
//   - Runner: ties the above together for one RunRequest and produces an Outcome
//
// Evidence captured while a check runs is kept in an attachments.Registry, scoped by
// the identity of the check.
package runner
