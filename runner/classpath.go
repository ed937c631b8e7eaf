package runner

import (
	"strings"
)

// AdjustClasspath builds the classpath used to launch the runner on Windows.
//
// The runner itself is prepended, and entries containing marker are moved to the end.
// With compat set the result is byte-for-byte what earlier tooling produced: only the
// last marker entry survives, and it is appended after a doubled separator (a bare
// doubled separator when there is no marker entry). Without compat every marker entry is
// kept, in order, and entries are joined normally.
func AdjustClasspath(runnerPath string, entries []string, marker, sep string, compat bool) string {
	all := make([]string, 0, len(entries)+1)
	all = append(all, runnerPath)
	all = append(all, entries...)

	var kept, isolated []string
	for _, entry := range all {
		if marker != "" && strings.Contains(entry, marker) {
			isolated = append(isolated, entry)
		} else {
			kept = append(kept, entry)
		}
	}

	if compat {
		var b strings.Builder
		for _, entry := range kept {
			b.WriteString(entry)
			b.WriteString(sep)
		}
		b.WriteString(sep)
		if len(isolated) > 0 {
			b.WriteString(isolated[len(isolated)-1])
		}
		return b.String()
	}

	return strings.Join(append(kept, isolated...), sep)
}
