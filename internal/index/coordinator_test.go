package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/findex/internal/async"
	ferrors "github.com/Aman-CERP/findex/internal/errors"
	"github.com/Aman-CERP/findex/internal/exclude"
	"github.com/Aman-CERP/findex/internal/features"
	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/search"
	"github.com/Aman-CERP/findex/internal/store"
)

const eventTimeout = 5 * time.Second

func newCoordinator(t *testing.T, idx *fakeIndex, dataDir string) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(CoordinatorConfig{
		Config:  testConfig(1000, 100),
		Store:   idx,
		Policy:  exclude.ForOS("linux"),
		DataDir: dataDir,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// collect reads events until stop returns true or the timeout expires.
func collect(t *testing.T, c *Coordinator, stop func(job.Event) bool) []job.Event {
	t.Helper()
	var events []job.Event
	deadline := time.After(eventTimeout)
	for {
		select {
		case e, ok := <-c.Events():
			require.True(t, ok, "event channel closed")
			events = append(events, e)
			if stop(e) {
				return events
			}
		case <-deadline:
			t.Fatalf("timed out after %d events", len(events))
			return events
		}
	}
}

func indexResult(e job.Event) bool {
	return e.Type == job.KindResult && e.Stage == job.StageIndex
}

func terminal(e job.Event) bool {
	return e.Type == job.KindCancelled || e.Type == job.KindError || indexResult(e)
}

// gate blocks a fake index hook until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) hook() {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
}

func (g *gate) open() { g.once.Do(func() { close(g.release) }) }

func (g *gate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(eventTimeout):
		t.Fatal("hook never entered")
	}
}

func TestNewCoordinator_RequiresDependencies(t *testing.T) {
	_, err := NewCoordinator(CoordinatorConfig{Store: &fakeIndex{}})
	assert.Error(t, err)

	_, err = NewCoordinator(CoordinatorConfig{Config: testConfig(10, 10)})
	assert.Error(t, err)
}

func TestCoordinator_StartScan_CrawlThenIndex(t *testing.T) {
	// Given: a small tree
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "hello", "b.bin": "\x00", "node_modules/x.js": "x"})
	idx := &fakeIndex{}
	dataDir := t.TempDir()
	c := newCoordinator(t, idx, dataDir)

	// When: a scan is started
	id, err := c.StartScan(root)
	require.NoError(t, err)
	events := collect(t, c, indexResult)
	require.NoError(t, c.Wait(t.Context()))

	// Then: crawl events precede index events, all tagged with the job
	var stages []job.Stage
	for _, e := range events {
		assert.Equal(t, id, e.JobID)
		assert.False(t, e.Time.IsZero())
		if len(stages) == 0 || stages[len(stages)-1] != e.Stage {
			stages = append(stages, e.Stage)
		}
	}
	assert.Equal(t, []job.Stage{job.StageCrawl, job.StageIndex}, stages)

	var crawlResult *job.Event
	for i := range events {
		if events[i].Type == job.KindResult && events[i].Stage == job.StageCrawl {
			crawlResult = &events[i]
		}
	}
	require.NotNil(t, crawlResult)
	assert.Equal(t, 2, crawlResult.Stats.TotalFiles)
	assert.Equal(t, 2, events[len(events)-1].Stats.TotalFiles)

	// Then: the snapshot and the index agree
	snap := c.Status()
	assert.Equal(t, job.PhaseCompleted, snap.Phase)
	assert.Equal(t, id, snap.JobID)
	assert.Equal(t, 2, snap.ItemsIndexed)
	assert.Len(t, idx.records(), 2)
	assert.False(t, async.HasIncompleteMarker(dataDir))
}

func TestCoordinator_StartScan_InaccessibleRoot(t *testing.T) {
	// Given
	c := newCoordinator(t, &fakeIndex{}, "")
	missing := filepath.Join(t.TempDir(), "missing")

	// When
	id, err := c.StartScan(missing)

	// Then: nothing starts and an error event is reported
	require.Error(t, err)
	assert.Empty(t, id)
	assert.Equal(t, ferrors.ErrCodeDirNotFound, ferrors.GetCode(err))

	events := collect(t, c, func(job.Event) bool { return true })
	assert.Equal(t, job.KindError, events[0].Type)
	assert.Equal(t, job.StageHost, events[0].Stage)
	assert.Contains(t, events[0].Message, "Cannot access directory")
	assert.Equal(t, job.PhaseIdle, c.Status().Phase)
}

func TestCoordinator_ControlsWithoutJob(t *testing.T) {
	c := newCoordinator(t, &fakeIndex{}, "")

	err := c.SetPaused(true)
	assert.Equal(t, ferrors.ErrCodeNoActiveJob, ferrors.GetCode(err))

	err = c.Cancel()
	assert.Equal(t, ferrors.ErrCodeNoActiveJob, ferrors.GetCode(err))
}

func TestCoordinator_SetPaused_NarratesChanges(t *testing.T) {
	// Given: a job held inside the index reset
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a"})
	g := newGate()
	idx := &fakeIndex{resetHook: g.hook}
	c := newCoordinator(t, idx, "")
	_, err := c.StartScan(root)
	require.NoError(t, err)
	g.waitEntered(t)

	// When: pause twice, then resume
	require.NoError(t, c.SetPaused(true))
	require.NoError(t, c.SetPaused(true))
	assert.True(t, c.Status().Paused)
	require.NoError(t, c.SetPaused(false))
	g.open()
	events := collect(t, c, terminal)

	// Then: one Paused and one Resumed, in that order
	var narration []string
	for _, e := range events {
		if e.Type == job.KindStatus && (e.Message == job.MessagePaused || e.Message == job.MessageResumed) {
			narration = append(narration, e.Message)
			assert.Equal(t, job.StageIndex, e.Stage)
		}
	}
	assert.Equal(t, []string{job.MessagePaused, job.MessageResumed}, narration)
	assert.True(t, indexResult(events[len(events)-1]))
	assert.False(t, c.Status().Paused)
}

func TestCoordinator_Cancel_EmitsCancelledWithoutResult(t *testing.T) {
	// Given: a job held inside the index reset
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})
	g := newGate()
	idx := &fakeIndex{resetHook: g.hook}
	dataDir := t.TempDir()
	c := newCoordinator(t, idx, dataDir)
	_, err := c.StartScan(root)
	require.NoError(t, err)
	g.waitEntered(t)

	// When: cancel, then let the in-flight reset finish
	require.NoError(t, c.Cancel())
	g.open()
	events := collect(t, c, terminal)
	require.NoError(t, c.Wait(t.Context()))

	// Then
	last := events[len(events)-1]
	assert.Equal(t, job.KindCancelled, last.Type)
	assert.Equal(t, job.StageIndex, last.Stage)
	for _, e := range events {
		assert.False(t, indexResult(e), "result after cancel")
	}
	assert.Empty(t, idx.batchSizes())
	assert.Equal(t, job.PhaseCancelled, c.Status().Phase)
	assert.True(t, async.HasIncompleteMarker(dataDir))

	err = c.Cancel()
	assert.Equal(t, ferrors.ErrCodeNoActiveJob, ferrors.GetCode(err))
}

func TestCoordinator_DispatchFailureReportsError(t *testing.T) {
	// Given
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a"})
	idx := &fakeIndex{addErr: fmt.Errorf("413 payload too large")}
	c := newCoordinator(t, idx, "")

	// When
	_, err := c.StartScan(root)
	require.NoError(t, err)
	events := collect(t, c, terminal)
	require.NoError(t, c.Wait(t.Context()))

	// Then
	last := events[len(events)-1]
	assert.Equal(t, job.KindError, last.Type)
	assert.Equal(t, job.StageIndex, last.Stage)
	assert.Equal(t, ferrors.ErrCodeDispatchFailed, last.Code)

	snap := c.Status()
	assert.Equal(t, job.PhaseFailed, snap.Phase)
	assert.NotEmpty(t, snap.ErrorMessage)
}

func TestCoordinator_StartScan_SupersedesRunningJob(t *testing.T) {
	// Given: job A held inside the index reset
	rootA := t.TempDir()
	writeFiles(t, rootA, map[string]string{"a.txt": "a"})
	rootB := t.TempDir()
	writeFiles(t, rootB, map[string]string{"b1.txt": "b", "b2.txt": "b"})

	g := newGate()
	var calls int
	var mu sync.Mutex
	idx := &fakeIndex{}
	idx.resetHook = func() {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			g.hook()
		}
	}
	var started []string
	c, err := NewCoordinator(CoordinatorConfig{
		Config:      testConfig(1000, 100),
		Store:       idx,
		Policy:      exclude.ForOS("linux"),
		OnScanStart: func(id string) { started = append(started, id) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	idA, err := c.StartScan(rootA)
	require.NoError(t, err)
	g.waitEntered(t)

	// When: job B starts while A is still in flight
	type startResult struct {
		id  string
		err error
	}
	done := make(chan startResult, 1)
	go func() {
		id, err := c.StartScan(rootB)
		done <- startResult{id, err}
	}()
	time.Sleep(20 * time.Millisecond)
	g.open()
	res := <-done
	require.NoError(t, res.err)
	events := collect(t, c, func(e job.Event) bool { return e.JobID == res.id && indexResult(e) })

	// Then: no terminal event of A, and nothing of A once B speaks
	assert.NotEqual(t, idA, res.id)
	seenB := false
	for _, e := range events {
		if e.JobID == res.id {
			seenB = true
			continue
		}
		assert.False(t, seenB, "event of superseded job after the new job started")
		assert.NotEqual(t, job.KindCancelled, e.Type)
		assert.False(t, indexResult(e))
	}
	assert.Equal(t, []string{idA, res.id}, started)
	assert.Equal(t, rootB, c.Status().Root)
	assert.Equal(t, 2, events[len(events)-1].Stats.TotalFiles)
}

func TestCoordinator_Close_StopsRunningJob(t *testing.T) {
	// Given
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a"})
	g := newGate()
	c := newCoordinator(t, &fakeIndex{resetHook: g.hook}, "")
	_, err := c.StartScan(root)
	require.NoError(t, err)
	g.waitEntered(t)

	// When
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.open()
	}()
	require.NoError(t, c.Close())

	// Then: the event channel drains and closes
	for range c.Events() {
	}
	_, err = c.StartScan(root)
	assert.Error(t, err)
}

func TestCoordinator_PermissionDeniedRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores permissions")
	}
	// Given
	root := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(root, 0o000))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })
	c := newCoordinator(t, &fakeIndex{}, "")

	// When
	_, err := c.StartScan(root)

	// Then
	require.Error(t, err)
	assert.Equal(t, ferrors.ErrCodeDirPermission, ferrors.GetCode(err))
}

func TestCoordinator_CancelAfterResultKeepsCompletion(t *testing.T) {
	// Given: a job running to its index result
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})
	dataDir := t.TempDir()
	c := newCoordinator(t, &fakeIndex{}, dataDir)
	id, err := c.StartScan(root)
	require.NoError(t, err)
	collect(t, c, indexResult)

	// When: the host cancels right after seeing the result
	err = c.Cancel()

	// Then: there is nothing left to cancel and the job stays completed
	assert.Equal(t, ferrors.ErrCodeNoActiveJob, ferrors.GetCode(err))
	require.NoError(t, c.Wait(t.Context()))
	assert.Equal(t, job.PhaseCompleted, c.Status().Phase)
	assert.False(t, async.HasIncompleteMarker(dataDir))
	select {
	case e := <-c.Events():
		t.Fatalf("event after result: %s/%s of %s", e.Stage, e.Type, id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCoordinator_StartScan_DropsUnreadEventsOfPreviousJob(t *testing.T) {
	// Given: a first job that completed while nobody read its events
	rootA := t.TempDir()
	writeFiles(t, rootA, map[string]string{"a1.txt": "a", "a2.txt": "a"})
	rootB := t.TempDir()
	writeFiles(t, rootB, map[string]string{"b.txt": "b"})
	c := newCoordinator(t, &fakeIndex{}, "")
	_, err := c.StartScan(rootA)
	require.NoError(t, err)
	require.NoError(t, c.Wait(t.Context()))

	// When: a second job starts
	idB, err := c.StartScan(rootB)
	require.NoError(t, err)
	events := collect(t, c, indexResult)

	// Then: only the second job is heard from
	for _, e := range events {
		assert.Equal(t, idB, e.JobID, "%s/%s", e.Stage, e.Type)
	}
	assert.Equal(t, 1, events[len(events)-1].Stats.TotalFiles)
}

// gatedIndex blocks the nth AddDocuments call on a gate.
type gatedIndex struct {
	store.DocumentIndex
	mu    sync.Mutex
	calls int
	nth   int
	gate  *gate
}

func (g *gatedIndex) AddDocuments(ctx context.Context, docs []features.Record) error {
	g.mu.Lock()
	g.calls++
	hold := g.calls == g.nth
	g.mu.Unlock()
	if hold {
		g.gate.hook()
	}
	return g.DocumentIndex.AddDocuments(ctx, docs)
}

func TestCoordinator_SearchCacheFollowsIndexing(t *testing.T) {
	// Given: a search service whose cache is invalidated on index changes
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"one.txt":   "budget one",
		"two.txt":   "budget two",
		"three.txt": "budget three",
	})
	bleveIdx, err := store.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bleveIdx.Close() })
	g := newGate()
	idx := &gatedIndex{DocumentIndex: bleveIdx, nth: 2, gate: g}

	svc, err := search.NewService(search.ServiceConfig{Index: idx})
	require.NoError(t, err)
	c, err := NewCoordinator(CoordinatorConfig{
		Config:         testConfig(1, 100),
		Store:          idx,
		Policy:         exclude.ForOS("linux"),
		OnScanStart:    func(string) { svc.Invalidate() },
		OnIndexChanged: func(string) { svc.Invalidate() },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.StartScan(root)
	require.NoError(t, err)
	g.waitEntered(t)

	// When: a query runs while the second batch is held, then indexing ends
	during, err := svc.Search(t.Context(), "budget", search.Options{})
	require.NoError(t, err)
	g.open()
	collect(t, c, indexResult)
	after, err := svc.Search(t.Context(), "budget", search.Options{})
	require.NoError(t, err)

	// Then: the partial answer is not served once the index is complete
	assert.Len(t, during, 1)
	assert.Len(t, after, 3)
}
