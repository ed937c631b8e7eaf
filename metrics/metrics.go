package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yamf-go/op-marker/types"
)

const (
	MetricsNamespace = "marker"
)

var (
	Debug                bool = true
	validStatuses             = []types.CheckStatus{types.CheckStatusSuccess, types.CheckStatusFailure, types.CheckStatusAborted}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "checks_total",
		Help:      "Count of marked checks by outcome",
	}, []string{
		"run_id",
		"status",
	})

	unmarkedChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "unmarked_checks_total",
		Help:      "Count of finished checks without marking metadata",
	}, []string{
		"run_id",
	})

	marksAwarded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "marks_awarded",
		Help:      "Sum of marks awarded in a run",
	}, []string{
		"run_id",
	})

	marksAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "marks_available",
		Help:      "Sum of marks available in a run",
	}, []string{
		"run_id",
	})

	runnerInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runner_invocations_total",
		Help:      "Count of external runner invocations",
	}, []string{
		"result",
	})

	runnerTests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "runner_tests",
		Help:      "Counters read from the runner's result files",
	}, []string{
		"run_id",
		"kind",
	})

	evidenceDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "evidence_dropped_total",
		Help:      "Evidence items dropped because no scope was open",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordCheck(runID string, status types.CheckStatus) {
	if !slices.Contains(validStatuses, status) {
		log.Error("RecordCheck - invalid status", "status", status)
		return
	}
	checksTotal.WithLabelValues(runID, string(status)).Inc()
}

func RecordUnmarkedCheck(runID string) {
	unmarkedChecksTotal.WithLabelValues(runID).Inc()
}

func RecordMarks(runID string, awarded, available float64) {
	marksAwarded.WithLabelValues(runID).Set(awarded)
	marksAvailable.WithLabelValues(runID).Set(available)
}

// RecordInvocation counts runner invocations by how they ended ("completed", "spawn_error", ...)
func RecordInvocation(result string) {
	runnerInvocationsTotal.WithLabelValues(result).Inc()
}

func RecordRunCounts(runID string, counts types.Counts) {
	runnerTests.WithLabelValues(runID, "total").Set(float64(counts.Tests))
	runnerTests.WithLabelValues(runID, "failed").Set(float64(counts.Failed))
	runnerTests.WithLabelValues(runID, "skipped").Set(float64(counts.Skipped))
	runnerTests.WithLabelValues(runID, "errored").Set(float64(counts.Errored))
}

func RecordEvidenceDropped() {
	evidenceDroppedTotal.Inc()
}
