package graph

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oakmere/pregel-go/graph/emit"
)

// Compiled is a validated, runnable graph produced by Builder.Compile. It
// owns no per-run state itself; Run/Resume/Stream each drive one
// independent execution against the configured Saver.
type Compiled struct {
	nodes       map[string]NodeSpec
	edges       []Edge
	conditional []ConditionalEdge
	entry       string
	triggerIdx  TriggerIndex
	cfg         *driverConfig
}

// Run executes graph from a fresh or existing thread to quiescence (no task
// fires in a superstep) and returns the final state value.
func (g *Compiled) Run(ctx context.Context, threadID string, input Value) (Value, error) {
	return g.runInternal(ctx, threadID, input, nil, g.cfg.store)
}

// Stream executes graph like Run, additionally publishing Events matching
// modes to sink as they occur.
func (g *Compiled) Stream(ctx context.Context, threadID string, input Value, sink StreamSink, modes StreamMode) (Value, error) {
	s := newStreamer(sink, modes, nil, &sequencer{})
	return g.runInternal(ctx, threadID, input, s, g.cfg.store)
}

// Resume continues a thread paused at an interrupt, supplying resumeValue
// to satisfy it. It fails with ErrNotInterrupted
// if the thread is not currently paused.
func (g *Compiled) Resume(ctx context.Context, threadID string, resumeValue Value) (Value, error) {
	return g.resumeInternal(ctx, threadID, resumeValue, nil, nil, g.cfg.store)
}

// ResumeByID continues a thread with per-interrupt resume values, applied
// in deterministic task-path order to the set of currently pending
// interrupts.
func (g *Compiled) ResumeByID(ctx context.Context, threadID string, byID map[string]Value) (Value, error) {
	return g.resumeInternal(ctx, threadID, nil, byID, nil, g.cfg.store)
}

func (g *Compiled) runInternal(ctx context.Context, threadID string, input Value, stream *streamer, store any) (Value, error) {
	if g.cfg.saver == nil {
		return nil, fmt.Errorf("%w: no saver configured", ErrValidation)
	}
	if threadID == "" {
		return nil, ErrMissingThreadID
	}

	live := g.newLiveChannels()
	cp := emptyCheckpoint(NewCheckpointID(time.Now()))

	startCh := live[Start]
	if _, err := startCh.Update([]Value{input}); err != nil {
		return nil, err
	}
	v := Increment(NullVersion)
	cp.ChannelVersions[Start] = v

	cfg := Config{ThreadID: threadID}
	return g.loop(ctx, cfg, cp, live, stream, store, &resumeTracker{})
}

func (g *Compiled) resumeInternal(ctx context.Context, threadID string, single Value, byID map[string]Value, stream *streamer, store any) (Value, error) {
	if g.cfg.saver == nil {
		return nil, fmt.Errorf("%w: no saver configured", ErrValidation)
	}
	cfg := Config{ThreadID: threadID}
	tuple, err := g.cfg.saver.GetTuple(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if tuple == nil {
		return nil, ErrNotInterrupted
	}
	pendingRaw, _ := tuple.Metadata.Extra["pending_interrupt"]
	if pendingRaw == nil {
		return nil, ErrNotInterrupted
	}

	live, err := restoreChannels(tuple.Checkpoint, g.cfg.channels)
	if err != nil {
		return nil, err
	}
	cp := tuple.Checkpoint.clone()

	tracker := &resumeTracker{resuming: true, byID: byID}
	if single != nil {
		tracker.single = single
		tracker.hasSingle = true

		// A state-shaped override merges into the state channel via
		// reducers before resumption; it remains available from tracker
		// too, for a node fast-forwarding past an inline interrupt via
		// RunContext.Resume.
		if _, isMap := single.(map[string]Value); isMap {
			if ch, ok := live[StateChan]; ok {
				if changed, uerr := ch.Update([]Value{single}); uerr != nil {
					return nil, uerr
				} else if changed {
					cp.ChannelVersions[StateChan] = Increment(maxVersion(cp.ChannelVersions))
				}
			}
		}
	}
	cfg.CheckpointID = tuple.Config.CheckpointID
	return g.loop(ctx, cfg, cp, live, stream, store, tracker)
}

// loop implements the superstep driver: repeated
// prepare -> execute -> apply -> checkpoint -> stream until no task fires.
func (g *Compiled) loop(ctx context.Context, cfg Config, cp *Checkpoint, live map[string]Channel, stream *streamer, store any, tracker *resumeTracker) (Value, error) {
	step := 0
	var updatedHint []string
	hintProvided := false

	for {
		if step >= g.cfg.maxSteps {
			return nil, &RunError{Kind: KindMaxStepsExceeded, LastCheckpointID: cp.ID, Cause: ErrMaxStepsExceeded}
		}

		tasks, err := prepareNextTasks(cp, g.nodes, g.triggerIdx, live, updatedHint, hintProvided)
		if err != nil {
			return nil, &RunError{Kind: KindInvalidUpdate, LastCheckpointID: cp.ID, Cause: err}
		}
		if len(tasks) == 0 {
			break
		}

		started := time.Now()
		completed, in, err := g.executeSuperstep(ctx, cfg, cp, step, tasks, live, stream, store, tracker)
		durationMs := float64(time.Since(started).Milliseconds())
		g.cfg.metrics.observeSuperstep(cfg.ThreadID, durationMs)
		g.cfg.emitter.Emit(emit.Event{
			RunID: cfg.ThreadID, Step: step, Msg: "superstep_end",
			Meta: map[string]interface{}{"duration_ms": int64(durationMs), "task_count": len(tasks)},
		})
		if in != nil {
			in.ThreadID = cfg.ThreadID
			in.Step = step
			in.CheckpointID = cp.ID
			meta := CheckpointMetadata{Step: step, Source: SourceLoop, Extra: map[string]Value{"pending_interrupt": in}}
			if _, perr := g.cfg.saver.Put(ctx, cfg, cp, meta, cp.ChannelVersions); perr != nil {
				return nil, perr
			}
			g.cfg.emitter.Emit(emit.Event{RunID: cfg.ThreadID, Step: step, NodeID: in.Node, Msg: "interrupt_pause"})
			return nil, &RunError{Kind: KindInterrupt, LastCheckpointID: cp.ID, Cause: in}
		}
		if err != nil {
			g.cfg.emitter.Emit(emit.Event{RunID: cfg.ThreadID, Step: step, Msg: "superstep_error",
				Meta: map[string]interface{}{"error": err.Error()}})
			return nil, err
		}

		updated, err := applyWrites(cp, live, completed, g.triggerIdx)
		if err != nil {
			return nil, &RunError{Kind: KindInvalidUpdate, LastCheckpointID: cp.ID, Cause: err}
		}

		snapshot, err := snapshotChannels(NewCheckpointID(time.Now()), cp.ID, cp, live, cp.ChannelVersions, cp.VersionsSeen, namesOf(updated))
		if err != nil {
			return nil, err
		}
		writesByTask := map[string][]Write{}
		for _, t := range completed {
			writesByTask[t.Name] = t.Writes
		}
		meta := CheckpointMetadata{Step: step, Source: SourceLoop, Writes: writesByTask}
		newCfg, err := g.cfg.saver.Put(ctx, cfg, snapshot, meta, snapshot.ChannelVersions)
		if err != nil {
			return nil, err
		}
		cfg = newCfg
		cp = snapshot
		g.cfg.emitter.Emit(emit.Event{RunID: cfg.ThreadID, Step: step, Msg: "checkpoint_saved",
			Meta: map[string]interface{}{"checkpoint_id": cp.ID}})

		if stream != nil {
			_ = stream.emit(ctx, Event{Mode: ModeCheckpoints, CheckpointID: cp.ID, Step: step})
			if val, verr := live[StateChan].Get(); verr == nil {
				_ = stream.emit(ctx, Event{Mode: ModeValues, Values: val})
			}
		}

		updatedHint = namesOf(updated)
		hintProvided = true
		step++
	}

	val, err := live[StateChan].Get()
	if err == ErrEmptyChannel {
		return nil, nil
	}
	return val, err
}

func namesOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// executeSuperstep runs every task in tasks concurrently (bounded by
// cfg.maxConcurrent), handling retry/timeout and static/inline interrupts.
// If any task raises an interrupt, execution of the remaining tasks is
// allowed to finish but the superstep as a whole returns the first
// interrupt encountered (in path order) instead of applying writes.
func (g *Compiled) executeSuperstep(ctx context.Context, cfg Config, cp *Checkpoint, step int, tasks map[string]*Task, live map[string]Channel, stream *streamer, store any, tracker *resumeTracker) ([]completedTask, *Interrupt, error) {
	ordered := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		ordered = append(ordered, t)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return pathKey(ordered[i].Path) < pathKey(ordered[j].Path) })

	g.cfg.metrics.setInflightTasks(len(ordered))
	defer g.cfg.metrics.setInflightTasks(0)

	results := make([]completedTask, len(ordered))

	var mu sync.Mutex
	var firstInterrupt *Interrupt
	firstIdx := len(ordered)

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.cfg.maxConcurrent)

	for i, t := range ordered {
		i, t := i, t
		if g.cfg.interruptBefore[t.Name] && !tracker.resuming {
			in := &Interrupt{ID: t.ID, Node: t.Name, When: Before}
			return nil, in, nil
		}
		grp.Go(func() error {
			writes, err := g.runTask(gctx, cfg, step, t, live, stream, store, tracker)
			if err != nil {
				if in, ok := asInterrupt(err); ok {
					mu.Lock()
					if i < firstIdx {
						firstIdx, firstInterrupt = i, in
					}
					mu.Unlock()
					return nil
				}
				return &RunError{Kind: KindExecutor, LastCheckpointID: cp.ID, Cause: err}
			}
			if g.cfg.interruptAfter[t.Name] && !tracker.resuming {
				mu.Lock()
				if i < firstIdx {
					firstIdx, firstInterrupt = i, &Interrupt{ID: t.ID, Node: t.Name, When: After}
				}
				mu.Unlock()
			}
			results[i] = completedTask{Name: t.Name, Path: t.Path, Triggers: t.Triggers, Writes: writes}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}
	if firstInterrupt != nil {
		return nil, firstInterrupt, nil
	}
	return results, nil, nil
}

// runTask invokes a single task's executor (or embedded subgraph) with
// retry and timeout per its effective NodePolicy, converting its return
// value into writes.
func (g *Compiled) runTask(ctx context.Context, cfg Config, step int, t *Task, live map[string]Channel, stream *streamer, store any, tracker *resumeTracker) ([]Write, error) {
	timeout := effectiveTimeout(t.spec.Policy, g.cfg.defaultTimeout)
	retry := effectiveRetry(t.spec.Policy, g.cfg.defaultRetry)
	rng := rand.New(rand.NewSource(int64(len(t.ID)) + time.Now().UnixNano()))

	var childStream *streamer
	if stream != nil {
		childStream = stream.child(t.Name)
	}

	rt := &RunContext{
		ThreadID: cfg.ThreadID,
		Step:     step,
		Node:     t.Name,
		TaskID:   t.ID,
		ctx:      ctx,
		stream:   childStream,
		store:    store,
		parent:   &cfg,
		tracker:  tracker,
	}

	var cacheKey string
	if g.cfg.cache != nil {
		cacheKey = fmt.Sprintf("%s:%s:%v", cfg.ThreadID, t.Name, t.Input)
		if v, ok := g.cfg.cache.Get(cacheKey); ok {
			return g.writesFor(t, v, live), nil
		}
	}

	var out Value
	var runErr error
	for attempt := 1; attempt <= retry.maxAttempts(); attempt++ {
		runCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		if stream != nil {
			_ = stream.emit(ctx, Event{Mode: ModeTasks, TaskPhase: TaskStart, TaskID: t.ID, TaskNode: t.Name, TaskInput: t.Input})
		}
		taskStarted := time.Now()
		g.cfg.emitter.Emit(emit.Event{RunID: cfg.ThreadID, Step: step, NodeID: t.Name, Msg: "task_start",
			Meta: map[string]interface{}{"attempt": attempt}})

		out, runErr = g.invoke(runCtx, t, rt)
		if cancel != nil {
			cancel()
		}
		taskDurationMs := int64(time.Since(taskStarted).Milliseconds())

		if runErr == nil {
			if stream != nil {
				_ = stream.emit(ctx, Event{Mode: ModeTasks, TaskPhase: TaskEnd, TaskID: t.ID, TaskNode: t.Name, TaskOut: out})
			}
			g.cfg.metrics.recordTaskOutcome(t.Name, "ok")
			g.cfg.emitter.Emit(emit.Event{RunID: cfg.ThreadID, Step: step, NodeID: t.Name, Msg: "task_end",
				Meta: map[string]interface{}{"attempt": attempt, "duration_ms": taskDurationMs}})
			break
		}
		if _, isInterrupt := asInterrupt(runErr); isInterrupt {
			return nil, &ExecutorError{Node: t.Name, TaskID: t.ID, Attempt: attempt, Cause: runErr}
		}
		if stream != nil {
			_ = stream.emit(ctx, Event{Mode: ModeTasks, TaskPhase: TaskErrorPhase, TaskID: t.ID, TaskNode: t.Name, TaskErr: runErr})
		}
		g.cfg.emitter.Emit(emit.Event{RunID: cfg.ThreadID, Step: step, NodeID: t.Name, Msg: "task_error",
			Meta: map[string]interface{}{"attempt": attempt, "duration_ms": taskDurationMs, "error": runErr.Error()}})
		if attempt >= retry.maxAttempts() || !retry.shouldRetry(runErr) {
			g.cfg.metrics.recordTaskOutcome(t.Name, "error")
			return nil, &ExecutorError{Node: t.Name, TaskID: t.ID, Attempt: attempt, Cause: runErr}
		}
		g.cfg.metrics.recordTaskOutcome(t.Name, "retry")
		if err := sleepCtx(ctx, retry.backoff(attempt, rng)); err != nil {
			return nil, err
		}
	}
	if runErr != nil {
		if in, ok := asInterrupt(runErr); ok {
			return nil, in
		}
		return nil, runErr
	}

	if g.cfg.cache != nil {
		g.cfg.cache.Put(cacheKey, out)
		g.cfg.metrics.recordCacheStats(g.cfg.cache.Stats())
	}

	return g.writesFor(t, out, live), nil
}

// invoke dispatches to a node's Executor or, if it embeds a subgraph, to
// runSubgraph.
func (g *Compiled) invoke(ctx context.Context, t *Task, rt *RunContext) (Value, error) {
	if t.spec.Subgraph != nil {
		return runSubgraph(ctx, t.spec.Subgraph, t.Input, rt)
	}
	return t.spec.Executor(ctx, t.Input, rt)
}

// writesFor converts a node's return value into channel writes, applying
// Command handling (Update, Goto -> __tasks__ Sends). A plain
// Value return is treated as an implicit Command{Update: value}. When the
// node returns no explicit Goto, the graph's declared edges/conditional
// edges for this node supply the route instead. Any resulting Send
// left without an explicit Input is filled with the current state
// snapshot, so plain node-to-node edges still carry state forward.
func (g *Compiled) writesFor(t *Task, out Value, live map[string]Channel) []Write {
	cmd, isCmd := out.(*Command)
	if !isCmd {
		cmd = &Command{Update: out}
	}

	var writes []Write
	if cmd.Update != nil {
		for _, w := range UpdateAsTuples(cmd.Update) {
			writes = append(writes, Write{Channel: StateChan, Value: map[string]Value{w.Channel: w.Value}})
		}
	}

	route := cmd.Goto
	if route == nil {
		route = g.declaredRoute(t.Name, out)
	}
	if route != nil {
		snapshot := stateSnapshot(live)
		for _, send := range routeToSends(*route) {
			if send.Input == nil {
				send.Input = snapshot
			}
			writes = append(writes, Write{Channel: TasksChan, Value: send})
		}
	}
	return writes
}

// declaredRoute computes the Route implied by a node's statically declared
// edges and conditional edges, or nil if it has none.
func (g *Compiled) declaredRoute(node string, out Value) *Route {
	var sends []Send
	for _, e := range g.edges {
		if e.From == node && e.To != End {
			sends = append(sends, Send{Node: e.To})
		}
	}
	for _, ce := range g.conditional {
		if ce.From == node {
			sends = append(sends, routeToSends(ce.Router(out))...)
		}
	}
	if len(sends) == 0 {
		return nil
	}
	r := ToSends(sends...)
	return &r
}

// stateSnapshot reads the current state channel value, or nil if it holds
// nothing yet.
func stateSnapshot(live map[string]Channel) Value {
	ch, ok := live[StateChan]
	if !ok {
		return nil
	}
	v, err := ch.Get()
	if err != nil {
		return nil
	}
	return v
}

func routeToSends(r Route) []Send {
	switch r.Kind {
	case RouteNode:
		return []Send{{Node: r.Node}}
	case RouteNodes:
		out := make([]Send, len(r.Nodes))
		for i, n := range r.Nodes {
			out[i] = Send{Node: n}
		}
		return out
	case RouteSend:
		return []Send{r.Send}
	case RouteSends:
		return r.Sends
	default:
		return nil
	}
}

// newLiveChannels constructs the initial live channel map for a fresh run:
// every configured channel plus the reserved Start and TasksChan channels.
func (g *Compiled) newLiveChannels() map[string]Channel {
	live := make(map[string]Channel, len(g.cfg.channels)+2)
	for name, spec := range g.cfg.channels {
		live[name] = NewChannel(spec.Kind, spec.Options...)
	}
	live[Start] = NewChannel(KindLastValue, WithAnyValue())
	live[TasksChan] = NewChannel(KindTopic)
	return live
}
