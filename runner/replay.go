package runner

// Replay feeds the lifecycle of recorded test cases to handler, as a runner emitting
// events would have. It is used when a run produced reports but no lifecycle events.
//
// Skipped cases cannot be told apart from aborted ones in a report, so both are replayed
// as aborted checks and end up flagged for review.
func Replay(cases []TestCase, handler EventHandler) {
	handler(Event{Kind: EventRunStarted})
	for _, tc := range cases {
		id := tc.ID()
		handler(Event{Kind: EventCheckStarted, ID: id, Type: NodeTypeTest})
		handler(Event{
			Kind:   EventCheckFinished,
			ID:     id,
			Type:   NodeTypeTest,
			Status: string(tc.Status),
			Error:  tc.Message,
		})
	}
	handler(Event{Kind: EventRunFinished})
}
