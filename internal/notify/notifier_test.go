package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotifierSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rec := NewRecorder()
	rec.Unreachable["gone"] = true

	n := New(rec, zap.New(core))
	n.Send("gone", EventEnterFocusMode, nil)
	n.Send("main", EventRefreshData, nil)

	assert.Len(t, rec.Deliveries(), 1)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event not delivered", logs.All()[0].Message)
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Send("main", EventRefreshData, nil)
	n.Broadcast(EventTaskUpdated, nil)

	New(nil, nil).Send("main", EventRefreshData, nil)
}

func TestStatusEventEncoding(t *testing.T) {
	id := "t1"
	complete := true
	elapsed := 1500.0

	tests := []struct {
		name  string
		event StatusEvent
		want  string
	}{
		{
			name:  "opened",
			event: StatusEvent{ActiveTaskID: &id, OpenedTaskID: &id},
			want:  `{"activeTaskId":"t1","openedTaskId":"t1"}`,
		},
		{
			name:  "closed to home",
			event: StatusEvent{ClosedTaskID: &id, CompleteOnHome: &complete, ElapsedMs: &elapsed},
			want:  `{"activeTaskId":null,"closedTaskId":"t1","completeOnHome":true,"elapsedMs":1500}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestEnterFocusPayloadEncoding(t *testing.T) {
	b, err := json.Marshal(EnterFocusPayload{TaskID: "t1", TaskName: "Write"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"taskId":"t1","taskName":"Write","duration":null,"initialTimeSpent":0}`, string(b))
}
