package operations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptbxl/internal/shared/testutil"
)

func noop(context.Context, *OperationState) error { return nil }

func stepIDs(steps []Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewStep("a", "A", nil, noop)))

	assert.ErrorIs(t, r.Register(NewStep("a", "again", nil, noop)), ErrDuplicateStep)
	assert.Error(t, r.Register(NewStep("", "blank", nil, noop)))
	assert.Error(t, r.Register(nil))
	assert.Equal(t, 1, r.Count())

	step, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "A", step.Name())

	_, err = r.Get("b")
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestRegistry_GetDependencyOrder(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		want    []string
		wantErr error
	}{
		{
			name:    "empty",
			wantErr: ErrNoSteps,
		},
		{
			name: "independent steps keep registration order",
			steps: []Step{
				NewStep("c", "C", nil, noop),
				NewStep("a", "A", nil, noop),
				NewStep("b", "B", nil, noop),
			},
			want: []string{"c", "a", "b"},
		},
		{
			name: "dependencies first",
			steps: []Step{
				NewStep("plot", "Plot", []string{"clean"}, noop),
				NewStep("labels", "Labels", []string{"meta"}, noop),
				NewStep("meta", "Meta", nil, noop),
				NewStep("clean", "Clean", []string{"labels"}, noop),
			},
			want: []string{"meta", "labels", "clean", "plot"},
		},
		{
			name: "unknown dependency",
			steps: []Step{
				NewStep("a", "A", []string{"missing"}, noop),
			},
			wantErr: ErrStepNotFound,
		},
		{
			name: "cycle",
			steps: []Step{
				NewStep("a", "A", []string{"b"}, noop),
				NewStep("b", "B", []string{"a"}, noop),
			},
			wantErr: ErrCircularDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, s := range tt.steps {
				require.NoError(t, r.Register(s))
			}

			order, err := r.GetDependencyOrder()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, stepIDs(order))
		})
	}
}

func TestRunner_Run(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewStep("sum", "Sum", []string{"values"}, func(_ context.Context, s *OperationState) error {
		values, err := ContextValue[[]int](s, "values")
		if err != nil {
			return err
		}
		total := 0
		for _, v := range values {
			total += v
		}
		s.SetContext("total", total)
		return nil
	})))
	require.NoError(t, r.Register(NewStep("values", "Values", nil, func(_ context.Context, s *OperationState) error {
		s.SetContext("values", []int{1, 2, 3})
		return nil
	})))

	logger, handler := testutil.NewTestLogger(t)
	state, err := NewRunner(r, logger).Run(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, OperationStatusCompleted, state.GetStatus())
	total, err := ContextValue[int](state, "total")
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	for _, s := range state.Steps {
		assert.Equal(t, StepStatusCompleted, s.GetStatus())
		assert.GreaterOrEqual(t, s.Duration().Nanoseconds(), int64(0))
	}
	assert.Equal(t, "values", state.Steps[0].ID)
	assert.True(t, handler.ContainsMessage("Operation completed"))
	assert.True(t, handler.ContainsAttr("step", "sum"))
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	ran := map[string]bool{}
	mark := func(id string, err error) StepFunc {
		return func(context.Context, *OperationState) error {
			ran[id] = true
			return err
		}
	}

	r := NewRegistry()
	require.NoError(t, r.Register(NewStep("a", "A", nil, mark("a", nil))))
	require.NoError(t, r.Register(NewStep("b", "B", []string{"a"}, mark("b", boom))))
	require.NoError(t, r.Register(NewStep("c", "C", []string{"b"}, mark("c", nil))))

	logger, handler := testutil.NewTestLogger(t)
	state, err := NewRunner(r, logger).Run(context.Background(), "failing")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, ErrorTypeExecution, opErr.Type)
	assert.Equal(t, "b", opErr.Step)

	assert.Equal(t, OperationStatusFailed, state.GetStatus())
	assert.Equal(t, StepStatusCompleted, state.GetStep("a").GetStatus())
	assert.Equal(t, StepStatusFailed, state.GetStep("b").GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStep("c").GetStatus())
	assert.False(t, ran["c"])
	assert.True(t, handler.ContainsMessage("Step failed"))
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := NewRegistry()
	require.NoError(t, r.Register(NewStep("a", "A", nil, func(context.Context, *OperationState) error {
		cancel()
		return nil
	})))
	require.NoError(t, r.Register(NewStep("b", "B", nil, noop)))

	state, err := NewRunner(r, nil).Run(ctx, "cancelled")
	require.Error(t, err)
	assert.True(t, IsCancellation(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OperationStatusCancelled, state.GetStatus())
	assert.Equal(t, StepStatusCompleted, state.GetStep("a").GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStep("b").GetStatus())
}

func TestRunner_InvalidRegistry(t *testing.T) {
	state, err := NewRunner(NewRegistry(), nil).Run(context.Background(), "empty")
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrNoSteps)
}

func TestContextValue(t *testing.T) {
	state := NewOperationState("ctx")
	state.SetContext("n", 3)

	_, err := ContextValue[string](state, "n")
	assert.ErrorIs(t, err, ErrMissingDependency)

	_, err = ContextValue[int](state, "absent")
	assert.ErrorIs(t, err, ErrMissingDependency)

	assert.Nil(t, state.GetStep("nope"))
}

func TestOperationError_Error(t *testing.T) {
	cause := errors.New("disk full")
	assert.Equal(t, "[execution] step save: execution failed: disk full", NewExecutionError("save", cause).Error())
	assert.Equal(t, "[dependency] rows: no value in operation context: missing dependency",
		NewDependencyError("rows", "no value in operation context").Error())
	assert.False(t, IsCancellation(cause))
}

func TestRunner_Observe(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	require.NoError(t, r.Register(NewStep("a", "A", nil, noop)))
	require.NoError(t, r.Register(NewStep("b", "B", []string{"a"}, func(context.Context, *OperationState) error { return boom })))
	require.NoError(t, r.Register(NewStep("c", "C", []string{"b"}, noop)))

	var events []StepEvent
	_, err := NewRunner(r, nil).Observe(func(ev StepEvent) {
		events = append(events, ev)
	}).Run(context.Background(), "observed")
	require.Error(t, err)

	type seen struct {
		step   string
		status StepStatus
	}
	var got []seen
	for _, ev := range events {
		assert.Equal(t, "observed", ev.OperationID)
		assert.Equal(t, 3, ev.Total)
		got = append(got, seen{ev.StepID, ev.Status})
	}
	assert.Equal(t, []seen{
		{"a", StepStatusActive},
		{"a", StepStatusCompleted},
		{"b", StepStatusActive},
		{"b", StepStatusFailed},
		{"c", StepStatusSkipped},
	}, got)
	assert.Equal(t, "boom", events[3].Error)
}

func TestRunner_RunStateSnapshot(t *testing.T) {
	state := NewOperationState("live")
	var mid Snapshot

	r := NewRegistry()
	require.NoError(t, r.Register(NewStep("first", "First", nil, func(_ context.Context, s *OperationState) error {
		mid = s.Snapshot()
		return nil
	})))
	require.NoError(t, r.Register(NewStep("second", "Second", []string{"first"}, func(context.Context, *OperationState) error {
		return errors.New("disk full")
	})))

	err := NewRunner(r, nil).RunState(context.Background(), state)
	require.Error(t, err)

	assert.Equal(t, OperationStatusRunning, mid.Status)
	require.Len(t, mid.Steps, 2)
	assert.Equal(t, StepStatusActive, mid.Steps[0].Status)
	assert.Equal(t, StepStatusPending, mid.Steps[1].Status)

	final := state.Snapshot()
	assert.Equal(t, OperationStatusFailed, final.Status)
	assert.NotNil(t, final.EndTime)
	assert.Contains(t, final.Error, "disk full")
	assert.Equal(t, StepStatusCompleted, final.Steps[0].Status)
	assert.Equal(t, "First done", final.Steps[0].Message)
	assert.Equal(t, "disk full", final.Steps[1].Error)
}
