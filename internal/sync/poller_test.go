package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/tests/testutil"
)

// fakeSource returns a scripted sequence of responses, repeating the last.
type fakeSource struct {
	mu        gosync.Mutex
	responses [][]model.Pipeline
	err       error
	calls     int
}

func (f *fakeSource) ListBlueprintPipelines(_ context.Context, _ int) (*model.PipelineList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &model.PipelineList{Pipelines: f.responses[i], Count: len(f.responses[i])}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollRecordsFinishedPipelines(t *testing.T) {
	st := testutil.NewTestStore(t)
	src := &fakeSource{responses: [][]model.Pipeline{
		{{ID: 2, BlueprintID: 1, Status: model.PipelineRunning}, {ID: 1, BlueprintID: 1, Status: model.PipelineCompleted}},
		{{ID: 2, BlueprintID: 1, Status: model.PipelineFailed}, {ID: 1, BlueprintID: 1, Status: model.PipelineCompleted}},
	}}
	p := New(src, st, time.Hour, zerolog.Nop())
	ctx := context.Background()

	first := p.Poll(ctx, 1)
	require.NoError(t, first.Error)
	assert.False(t, first.Done)
	assert.Empty(t, first.Finished, "pipelines already finished before the first poll are history")

	second := p.Poll(ctx, 1)
	require.NoError(t, second.Error)
	assert.True(t, second.Done)
	require.Len(t, second.Finished, 1)
	assert.Equal(t, 2, second.Finished[0].ID)

	unread, err := st.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, model.PipelineFailed, unread[0].Status)

	cached, err := st.GetPipelineByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.PipelineFailed, cached.Status)
}

func TestPollReportsAuthError(t *testing.T) {
	src := &fakeSource{err: &devlake.APIError{Status: 401, Message: "unauthorized"}}
	p := New(src, nil, time.Hour, zerolog.Nop())

	msg := p.Poll(context.Background(), 1)

	require.Error(t, msg.Error)
	assert.True(t, msg.AuthError)
	assert.False(t, msg.Done)
}

func TestPollWithoutStore(t *testing.T) {
	src := &fakeSource{responses: [][]model.Pipeline{{{ID: 1, Status: model.PipelineCancelled}}}}
	p := New(src, nil, time.Hour, zerolog.Nop())

	msg := p.Poll(context.Background(), 1)

	require.NoError(t, msg.Error)
	assert.True(t, msg.Done)
	assert.Len(t, msg.Pipelines, 1)
}

func TestWatchStopsWhenAllTerminal(t *testing.T) {
	src := &fakeSource{responses: [][]model.Pipeline{
		{{ID: 1, Status: model.PipelineRunning}},
		{{ID: 1, Status: model.PipelineRunning}},
		{{ID: 1, Status: model.PipelineCompleted}},
	}}
	p := New(src, testutil.NewTestStore(t), 10*time.Millisecond, zerolog.Nop())
	defer p.Stop()

	p.Watch(7)
	assert.True(t, p.Watching(7))

	var last PipelinesMsg
	for i := 0; i < 3; i++ {
		select {
		case last = <-p.Results():
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for poll result")
		}
	}

	assert.True(t, last.Done)
	assert.Equal(t, 7, last.BlueprintID)
	assert.False(t, p.Watching(7))

	// no further polls once finished
	calls := src.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, src.callCount())
}

// gatedSource blocks its first call until release is closed.
type gatedSource struct {
	fakeSource
	entered chan struct{}
	release chan struct{}
	once    gosync.Once
}

func (g *gatedSource) ListBlueprintPipelines(ctx context.Context, id int) (*model.PipelineList, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.fakeSource.ListBlueprintPipelines(ctx, id)
}

func TestWatchDuringFinalPollKeepsPolling(t *testing.T) {
	src := &gatedSource{
		fakeSource: fakeSource{responses: [][]model.Pipeline{
			{{ID: 1, Status: model.PipelineCompleted}},
			{{ID: 2, Status: model.PipelineRunning}, {ID: 1, Status: model.PipelineCompleted}},
			{{ID: 2, Status: model.PipelineCompleted}, {ID: 1, Status: model.PipelineCompleted}},
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := New(src, nil, 10*time.Millisecond, zerolog.Nop())
	defer p.Stop()

	p.Watch(7)
	select {
	case <-src.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first poll")
	}
	// a pipeline was started while the poll that sees everything finished is in flight
	p.Watch(7)
	close(src.release)

	var msgs []PipelinesMsg
	for {
		select {
		case msg := <-p.Results():
			msgs = append(msgs, msg)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for poll result")
		}
		if msgs[len(msgs)-1].Done {
			break
		}
	}

	require.Len(t, msgs, 3)
	assert.False(t, msgs[0].Done, "a pending trigger keeps the watch alive")
	assert.Equal(t, model.PipelineRunning, msgs[1].Pipelines[0].Status)
	assert.Equal(t, 3, src.callCount())
	assert.False(t, p.Watching(7))
}

func TestUnwatchStopsPolling(t *testing.T) {
	src := &fakeSource{responses: [][]model.Pipeline{{{ID: 1, Status: model.PipelineRunning}}}}
	p := New(src, nil, 10*time.Millisecond, zerolog.Nop())

	p.Watch(1)
	select {
	case <-p.Results():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first poll")
	}
	p.Unwatch(1)
	assert.False(t, p.Watching(1))

	time.Sleep(30 * time.Millisecond)
	calls := src.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, src.callCount())
}

func TestWaitForNextResult(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	p := New(src, nil, time.Hour, zerolog.Nop())
	defer p.Stop()

	p.Watch(3)
	msg := p.WaitForNextResult()()

	got, ok := msg.(PipelinesMsg)
	require.True(t, ok)
	assert.EqualError(t, got.Error, "connection refused")
	assert.False(t, got.AuthError)
}

func TestPollFallsBackToCacheWhenUnreachable(t *testing.T) {
	st := testutil.NewTestStore(t)
	src := &fakeSource{responses: [][]model.Pipeline{
		{{ID: 5, BlueprintID: 9, Status: model.PipelineCompleted}},
	}}
	p := New(src, st, time.Hour, zerolog.Nop())
	ctx := context.Background()

	ok := p.Poll(ctx, 9)
	require.NoError(t, ok.Error)
	assert.False(t, ok.Stale)

	src.mu.Lock()
	src.err = errors.New("connection refused")
	src.mu.Unlock()

	msg := p.Poll(ctx, 9)
	require.Error(t, msg.Error)
	assert.True(t, msg.Stale)
	require.Len(t, msg.Pipelines, 1)
	assert.Equal(t, 5, msg.Pipelines[0].ID)
	assert.False(t, msg.Done)
}
