package events_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowengine/internal/events"
)

func TestEmitAssignsMonotonicSequenceNumbers(t *testing.T) {
	ev := events.NewEmitter("exec-1", 8)
	require.NoError(t, ev.Emit(events.TypeNodeStart, "a", nil))
	require.NoError(t, ev.Emit(events.TypeNodeComplete, "a", map[string]string{"k": "v"}))
	ev.Close()

	var got []events.Event
	for e := range ev.Events() {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.Equal(t, "exec-1", got[1].ExecutionID)
	assert.JSONEq(t, `{"k":"v"}`, string(got[1].Payload))
}

func TestEmitNilPayloadLeavesPayloadEmpty(t *testing.T) {
	ev := events.NewEmitter("exec-1", 4)
	require.NoError(t, ev.Emit(events.TypeNodeSkip, "b", nil))
	ev.Close()

	e := <-ev.Events()
	assert.Empty(t, e.Payload)
}

func TestCloseStopsIterationOverEvents(t *testing.T) {
	ev := events.NewEmitter("exec-1", 4)
	ev.Close()

	_, open := <-ev.Events()
	assert.False(t, open, "reading from a closed emitter's channel must not block and must report closed")
}

func TestWriteSSEFormatsFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	ev := events.Event{Seq: 5, Type: events.TypeNodeComplete, ExecutionID: "exec-1", NodeID: "a"}

	require.NoError(t, events.WriteSSE(rec, rec, ev))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: node-complete\n"))
	assert.Contains(t, body, "id: 5\n")
	assert.True(t, strings.HasSuffix(body, "\n\n"))
	assert.True(t, rec.Flushed)
}
