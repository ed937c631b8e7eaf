package runner

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamf-go/op-marker/attachments"
	"github.com/yamf-go/op-marker/types"
)

type listenerFixture struct {
	listener  *Listener
	evidence  *attachments.Registry
	collector *Collector
}

func newListenerFixture(t *testing.T, marks MarkSource) listenerFixture {
	t.Helper()
	f := listenerFixture{
		evidence:  attachments.NewRegistry(testLogger()),
		collector: NewCollector(testLogger()),
	}
	l, err := NewListener(ListenerConfig{
		Log:       testLogger(),
		RunID:     "test-run",
		Marks:     marks,
		Evidence:  f.evidence,
		Collector: f.collector,
	})
	require.NoError(t, err)
	f.listener = l
	return f
}

func started(method string) Event {
	return Event{Kind: EventCheckStarted, ID: checkID(method), Type: NodeTypeTest}
}

func finished(method, status string) Event {
	return Event{Kind: EventCheckFinished, ID: checkID(method), Type: NodeTypeTest, Status: status}
}

func attached(method, name string) Event {
	return Event{Kind: EventAttachment, ID: checkID(method), Name: name, Path: "/evidence/" + name, MediaType: "text/plain"}
}

func TestNewListener_Validation(t *testing.T) {
	_, err := NewListener(ListenerConfig{Evidence: attachments.NewRegistry(testLogger()), Collector: NewCollector(testLogger())})
	assert.Error(t, err)
	_, err = NewListener(ListenerConfig{Marks: mapSource{}, Collector: NewCollector(testLogger())})
	assert.Error(t, err)
	_, err = NewListener(ListenerConfig{Marks: mapSource{}, Evidence: attachments.NewRegistry(testLogger())})
	assert.Error(t, err)
}

func TestListener_BuildsRecords(t *testing.T) {
	marks := mapSource{
		checkID("a"): {Mark: 2, Name: "Compiles"},
		checkID("b"): {Mark: 3, Name: "Handles input"},
	}
	f := newListenerFixture(t, marks)

	for _, ev := range []Event{
		{Kind: EventRunStarted},
		started("a"),
		attached("a", "a.log"),
		finished("a", "SUCCESSFUL"),
		started("b"),
		{Kind: EventCheckFinished, ID: checkID("b"), Type: NodeTypeTest, Status: "FAILED", Error: "expected 1"},
		{Kind: EventRunFinished},
	} {
		f.listener.Handle(ev)
	}

	records := f.collector.Records()
	require.Len(t, records, 2)
	assert.Equal(t, types.CheckStatusSuccess, records[0].Status)
	assert.Equal(t, 2.0, records[0].Mark())
	require.Len(t, records[0].Attachments, 1)
	assert.Equal(t, "a.log", records[0].Attachments[0].Name)

	assert.Equal(t, types.CheckStatusFailure, records[1].Status)
	assert.Equal(t, 0.0, records[1].Mark())
	assert.Equal(t, "expected 1", records[1].Failure)

	assert.True(t, f.listener.Observed())
	assert.True(t, f.listener.Completed())
	assert.Zero(t, f.evidence.OpenScopes())
}

func TestListener_UnmarkedCheckIsAbsent(t *testing.T) {
	f := newListenerFixture(t, mapSource{checkID("marked"): {Mark: 1}})

	f.listener.Handle(Event{Kind: EventRunStarted})
	f.listener.Handle(started("unmarked"))
	f.listener.Handle(finished("unmarked", "SUCCESSFUL"))
	f.listener.Handle(started("marked"))
	f.listener.Handle(finished("marked", "SUCCESSFUL"))

	records := f.collector.Records()
	require.Len(t, records, 1)
	assert.Equal(t, checkID("marked"), records[0].ID)
	assert.False(t, f.evidence.IsOpen(checkID("unmarked")), "scope is closed even without a record")
}

func TestListener_FinishedWithoutStartIsIgnored(t *testing.T) {
	f := newListenerFixture(t, mapSource{checkID("a"): {Mark: 1}, checkID("b"): {Mark: 1}})

	f.listener.Handle(Event{Kind: EventRunStarted})
	f.listener.Handle(finished("a", "SUCCESSFUL"))
	assert.Zero(t, f.collector.Len(), "no record without a started or skipped event")

	f.listener.Handle(started("b"))
	f.listener.Handle(finished("b", "SUCCESSFUL"))
	f.listener.Handle(finished("b", "FAILED"))

	records := f.collector.Records()
	require.Len(t, records, 1)
	assert.Equal(t, checkID("b"), records[0].ID)
	assert.Equal(t, types.CheckStatusSuccess, records[0].Status, "a second finish after the scope closed is dropped")
}

func TestListener_AbortedCheckIsFlagged(t *testing.T) {
	f := newListenerFixture(t, mapSource{checkID("a"): {Mark: 5}})

	f.listener.Handle(started("a"))
	f.listener.Handle(Event{Kind: EventCheckFinished, ID: checkID("a"), Type: NodeTypeTest, Status: "ABORTED", Error: "assumption failed"})

	records := f.collector.Records()
	require.Len(t, records, 1)
	assert.Equal(t, types.CheckStatusAborted, records[0].Status)
	assert.True(t, records[0].NeedsReview())
	assert.Equal(t, types.LabelTodo, records[0].Label())
	assert.Equal(t, "assumption failed", records[0].Notes())
}

func TestListener_ManualCheckIsFlagged(t *testing.T) {
	f := newListenerFixture(t, mapSource{checkID("a"): {Mark: 5, ManualRequired: true, ManualInstructions: "check the diagram"}})

	f.listener.Handle(started("a"))
	f.listener.Handle(finished("a", "SUCCESSFUL"))

	records := f.collector.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].NeedsReview())
	assert.Equal(t, "check the diagram", records[0].Notes())
}

func TestListener_IgnoresContainers(t *testing.T) {
	f := newListenerFixture(t, funcSource(func(id types.CheckID) (*types.MarkMetadata, bool, error) {
		return &types.MarkMetadata{Mark: 1}, true, nil
	}))

	f.listener.Handle(Event{Kind: EventCheckStarted, ID: testCheckClass, Type: NodeTypeContainer})
	f.listener.Handle(Event{Kind: EventCheckFinished, ID: testCheckClass, Type: NodeTypeContainer, Status: "SUCCESSFUL"})
	f.listener.Handle(Event{Kind: EventCheckFinished, ID: checkID("suite"), Type: NodeTypeContainer, Status: "SUCCESSFUL"})

	assert.Zero(t, f.collector.Len())
	assert.Zero(t, f.evidence.OpenScopes())
}

func TestListener_SkippedCheckKeepsScopeOpen(t *testing.T) {
	f := newListenerFixture(t, mapSource{checkID("a"): {Mark: 1}})

	f.listener.Handle(Event{Kind: EventRunStarted})
	f.listener.Handle(Event{Kind: EventCheckSkipped, ID: checkID("a"), Type: NodeTypeTest, Reason: "disabled"})
	assert.True(t, f.evidence.IsOpen(checkID("a")))
	assert.Zero(t, f.collector.Len(), "a skipped check never finishes")

	f.listener.Handle(Event{Kind: EventRunFinished})
	assert.Zero(t, f.evidence.OpenScopes(), "run end clears leftover scopes")
}

func TestListener_ExtractionFailuresAreLocal(t *testing.T) {
	f := newListenerFixture(t, funcSource(func(id types.CheckID) (*types.MarkMetadata, bool, error) {
		switch id.Method() {
		case "broken":
			return nil, false, errors.New("definition not found")
		case "panics":
			panic("lookup exploded")
		}
		return &types.MarkMetadata{Mark: 1}, true, nil
	}))

	for _, m := range []string{"broken", "panics", "fine"} {
		f.listener.Handle(started(m))
		f.listener.Handle(finished(m, "SUCCESSFUL"))
	}

	records := f.collector.Records()
	require.Len(t, records, 1)
	assert.Equal(t, checkID("fine"), records[0].ID)
	assert.Zero(t, f.evidence.OpenScopes())
}

func TestListener_ReorderedEventsGiveSameRecords(t *testing.T) {
	marks := mapSource{}
	var methods []string
	for i := 0; i < 20; i++ {
		m := fmt.Sprintf("m%02d", i)
		methods = append(methods, m)
		marks[checkID(m)] = types.MarkMetadata{Mark: float64(i)}
	}

	var want []types.ResultRecord
	for trial := 0; trial < 5; trial++ {
		order := append([]string(nil), methods...)
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		f := newListenerFixture(t, marks)
		for _, m := range order {
			f.listener.Handle(started(m))
		}
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, m := range order {
			f.listener.Handle(attached(m, m+".txt"))
			f.listener.Handle(finished(m, "SUCCESSFUL"))
		}

		got := f.collector.Records()
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got)
	}
	require.Len(t, want, 20)
	var sum float64
	for i, r := range want {
		assert.Equal(t, checkID(methods[i]), r.ID)
		sum += r.Mark()
	}
	assert.InDelta(t, 190.0, sum, 1e-9)
}

func TestListener_ConcurrentChecksKeepEvidenceApart(t *testing.T) {
	marks := mapSource{}
	const checks = 16
	const perCheck = 50
	for i := 0; i < checks; i++ {
		marks[checkID(fmt.Sprintf("c%02d", i))] = types.MarkMetadata{Mark: 1}
	}
	f := newListenerFixture(t, marks)
	f.listener.Handle(Event{Kind: EventRunStarted})

	var wg sync.WaitGroup
	for i := 0; i < checks; i++ {
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			f.listener.Handle(started(m))
			for j := 0; j < perCheck; j++ {
				f.listener.Handle(attached(m, fmt.Sprintf("%s-%d", m, j)))
			}
			f.listener.Handle(finished(m, "SUCCESSFUL"))
		}(fmt.Sprintf("c%02d", i))
	}
	wg.Wait()
	f.listener.Handle(Event{Kind: EventRunFinished})

	records := f.collector.Records()
	require.Len(t, records, checks)
	for _, r := range records {
		require.Len(t, r.Attachments, perCheck)
		for j, a := range r.Attachments {
			assert.Equal(t, fmt.Sprintf("%s-%d", r.ID.Method(), j), a.Name)
		}
	}
}
