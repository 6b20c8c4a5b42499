package tola

import "sync"

// Priority is the scheduler's two-level priority class (spec §4.K).
type Priority int

const (
	PriorityBackground Priority = iota
	PriorityActive
)

// CompileFunc performs the actual compile work for one source file.
type CompileFunc func(source string) error

type compileResult struct {
	err error
}

type schedulerItem struct {
	source   string
	priority Priority
	result   chan compileResult
}

// Scheduler is the priority-scheduled work queue described in spec
// §4.K: Active items (on-demand, user-blocking) always complete before
// any further Background item (whole-site compile) is dequeued. Workers
// poll a shutdown flag between items.
//
// Per-source de-duplication resolves spec §9's open question: the
// on-demand path relies on inFlight rather than refusing to run when a
// background build is already underway for the same source.
type Scheduler struct {
	compile CompileFunc
	workers int

	mu        sync.Mutex
	active    []*schedulerItem
	background []*schedulerItem
	inFlight  map[string][]chan compileResult
	notEmpty  *sync.Cond
	shutdown  bool
	wg        sync.WaitGroup
}

// NewScheduler starts a Scheduler with the given number of worker
// goroutines, each calling compile for its assigned source.
func NewScheduler(workers int, compile CompileFunc) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	s := &Scheduler{
		compile:  compile,
		workers:  workers,
		inFlight: make(map[string][]chan compileResult),
	}
	s.notEmpty = sync.NewCond(&s.mu)
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
	return s
}

// SubmitBackground enqueues files at Background priority and returns
// immediately.
func (s *Scheduler) SubmitBackground(files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range files {
		s.enqueueLocked(f, PriorityBackground)
	}
	s.notEmpty.Broadcast()
}

// SubmitActive enqueues a single file at Active priority and blocks
// until its compile result is available.
func (s *Scheduler) SubmitActive(file string) error {
	s.mu.Lock()
	ch := s.enqueueLocked(file, PriorityActive)
	s.notEmpty.Broadcast()
	s.mu.Unlock()

	res := <-ch
	return res.err
}

// enqueueLocked adds file to the appropriate queue, returning a
// result channel. If file is already in flight, the caller's channel
// is registered to receive the same result instead of starting a
// second compile (per-source de-duplication).
func (s *Scheduler) enqueueLocked(file string, priority Priority) chan compileResult {
	ch := make(chan compileResult, 1)
	if chans, ok := s.inFlight[file]; ok {
		s.inFlight[file] = append(chans, ch)
		// Promote to Active if a higher-priority request arrives for a
		// source already queued at Background: the pending item moves
		// from the Background queue to the Active queue, so the fairness
		// guarantee (Active completes before further Background starts)
		// holds even when de-duplicating. An item already being compiled
		// is left as it is.
		if priority == PriorityActive {
			s.promoteLocked(file)
		}
		return ch
	}
	s.inFlight[file] = []chan compileResult{ch}
	item := &schedulerItem{source: file, priority: priority, result: nil}
	if priority == PriorityActive {
		s.active = append(s.active, item)
	} else {
		s.background = append(s.background, item)
	}
	return ch
}

// promoteLocked moves a pending Background item for file to the Active
// queue, if found.
func (s *Scheduler) promoteLocked(file string) {
	for i, it := range s.background {
		if it.source == file {
			s.background = append(s.background[:i], s.background[i+1:]...)
			it.priority = PriorityActive
			s.active = append(s.active, it)
			return
		}
	}
}

// WaitAll blocks until every currently queued item (Active and
// Background) has drained.
func (s *Scheduler) WaitAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// the check and the Wait share one critical section, so the
	// Broadcast from the last completeLocked cannot be missed
	for len(s.active) > 0 || len(s.background) > 0 || len(s.inFlight) > 0 {
		s.notEmpty.Wait()
	}
}

// Shutdown requests every worker to stop after its current item and
// waits for them to exit.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.notEmpty.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) workerLoop() {
	defer s.wg.Done()
	for {
		item := s.nextItem()
		if item == nil {
			return // shutdown
		}
		err := s.compile(item.source)
		s.completeLocked(item.source, err)
	}
}

// nextItem blocks until an item is available or shutdown is requested.
// All Active items are drained before any Background item is dequeued,
// per the fairness guarantee of spec §5.
func (s *Scheduler) nextItem() *schedulerItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.shutdown {
			return nil
		}
		if len(s.active) > 0 {
			item := s.active[0]
			s.active = s.active[1:]
			return item
		}
		if len(s.background) > 0 {
			item := s.background[0]
			s.background = s.background[1:]
			return item
		}
		s.notEmpty.Wait()
	}
}

func (s *Scheduler) completeLocked(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chans := s.inFlight[source]
	delete(s.inFlight, source)
	for _, ch := range chans {
		ch <- compileResult{err: err}
	}
	s.notEmpty.Broadcast()
}
