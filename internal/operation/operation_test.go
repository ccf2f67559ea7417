package operation

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	failure := errors.New("booking not found")

	tests := []struct {
		name       string
		from       State
		event      Event
		wantStatus Status
		wantErr    error
		wantMsg    string
	}{
		{name: "zero state submits", from: State{}, event: Event{Kind: EventSubmit}, wantStatus: StatusSubmitting},
		{name: "double submit is busy", from: State{Status: StatusSubmitting}, event: Event{Kind: EventSubmit}, wantStatus: StatusSubmitting, wantErr: ErrBusy},
		{name: "succeed", from: State{Status: StatusSubmitting}, event: Event{Kind: EventSucceed}, wantStatus: StatusSucceeded},
		{name: "fail keeps message", from: State{Status: StatusSubmitting}, event: Event{Kind: EventFail, Err: failure}, wantStatus: StatusFailed, wantMsg: "booking not found"},
		{name: "retry after failure", from: State{Status: StatusFailed, Error: "x"}, event: Event{Kind: EventSubmit}, wantStatus: StatusSubmitting},
		{name: "succeed from idle", from: State{Status: StatusIdle}, event: Event{Kind: EventSucceed}, wantStatus: StatusIdle, wantErr: ErrInvalidTransition},
		{name: "fail from succeeded", from: State{Status: StatusSucceeded}, event: Event{Kind: EventFail}, wantStatus: StatusSucceeded, wantErr: ErrInvalidTransition},
		{name: "reset", from: State{Status: StatusFailed, Error: "x"}, event: Event{Kind: EventReset}, wantStatus: StatusIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.event.At = at
			got, err := Reduce(tt.from, tt.event)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantMsg, got.Error)
		})
	}
}

func TestTracker_BeginFinish(t *testing.T) {
	tr := NewTracker()
	key := Key("dispute", "d1")

	assert.Equal(t, StatusIdle, tr.Get(key).Status)

	require.NoError(t, tr.Begin(key))
	assert.ErrorIs(t, tr.Begin(key), ErrBusy)

	tr.Finish(key, errors.New("Failed to resolve dispute"))
	st := tr.Get(key)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "Failed to resolve dispute", st.Error)

	require.NoError(t, tr.Begin(key))
	tr.Finish(key, nil)
	assert.Equal(t, StatusSucceeded, tr.Get(key).Status)

	tr.Reset(key)
	assert.Equal(t, StatusIdle, tr.Get(key).Status)
}

func TestTracker_SingleInFlightPerKey(t *testing.T) {
	tr := NewTracker()
	key := Key("referral", "r1")

	var started int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Begin(key) == nil {
				atomic.AddInt32(&started, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), started)
	assert.NoError(t, tr.Begin(Key("referral", "r2")), "other keys are independent")
}

func TestTracker_ResetForgetsKey(t *testing.T) {
	tr := NewTracker()
	key := Key("promotion", "p1")

	require.NoError(t, tr.Begin(key))
	tr.Finish(key, nil)
	require.Equal(t, 1, tr.Len())

	tr.Reset(key)
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, StatusIdle, tr.Get(key).Status)
}

func TestTracker_ExpiresFinishedActions(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.nowFn = func() time.Time { return now }

	require.NoError(t, tr.Begin(Key("dispute", "d1")))
	tr.Finish(Key("dispute", "d1"), nil)
	require.NoError(t, tr.Begin(Key("dispute", "d2")))

	now = now.Add(DefaultRetention)
	assert.Equal(t, StatusIdle, tr.Get(Key("dispute", "d1")).Status)
	assert.Equal(t, StatusSubmitting, tr.Get(Key("dispute", "d2")).Status, "in-flight actions never expire")

	require.NoError(t, tr.Begin(Key("referral", "r1")))
	assert.Equal(t, 2, tr.Len())

	for i := 0; i < 100; i++ {
		now = now.Add(DefaultRetention)
		key := Key("promotion", time.Duration(i).String())
		require.NoError(t, tr.Begin(key))
		tr.Finish(key, nil)
	}
	assert.LessOrEqual(t, tr.Len(), 3)
}
