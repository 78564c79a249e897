package runner

import (
	"sync"

	"github.com/michaelbrown/playground/internal/verdict"
)

// Snapshot is the state of one run: a slot per case, nil until the case
// completes. Running is the case a sequential run is executing (-1 for
// none); Started marks every case that has been submitted, so in parallel
// mode all unfinished cases are in flight at once.
type Snapshot struct {
	RunID   string             `json:"run_id"`
	Mode    Mode               `json:"mode"`
	Total   int                `json:"total"`
	Running int                `json:"running"`
	Started []bool             `json:"started"`
	Results []*verdict.Verdict `json:"results"`
	Done    bool               `json:"done"`
}

// InFlight reports whether case i has been submitted but not completed.
func (s Snapshot) InFlight(i int) bool {
	if i < 0 || i >= len(s.Results) || s.Results[i] != nil {
		return false
	}
	return i == s.Running || (i < len(s.Started) && s.Started[i])
}

// Completed returns the verdicts of finished cases in index order.
func (s Snapshot) Completed() []verdict.Verdict {
	out := make([]verdict.Verdict, 0, len(s.Results))
	for _, v := range s.Results {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Started = append([]bool(nil), s.Started...)
	c.Results = make([]*verdict.Verdict, len(s.Results))
	for i, v := range s.Results {
		if v != nil {
			cp := *v
			c.Results[i] = &cp
		}
	}
	return c
}

// session owns the snapshot of an in-flight run. Each case writes only its
// own slot; the lock also serialises emitted snapshots.
type session struct {
	mu   sync.Mutex
	snap Snapshot
	emit func(Snapshot)
}

func newSession(id string, mode Mode, total int, emit func(Snapshot)) *session {
	return &session{
		snap: Snapshot{
			RunID:   id,
			Mode:    mode,
			Total:   total,
			Running: -1,
			Started: make([]bool, total),
			Results: make([]*verdict.Verdict, total),
		},
		emit: emit,
	}
}

func (s *session) start(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Running = i
	s.snap.Started[i] = true
	s.emit(s.snap.clone())
}

// startAll marks every case as submitted in one snapshot.
func (s *session) startAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.snap.Started {
		s.snap.Started[i] = true
	}
	s.emit(s.snap.clone())
}

func (s *session) complete(i int, v verdict.Verdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Results[i] = &v
	if s.snap.Running == i {
		s.snap.Running = -1
	}
	s.emit(s.snap.clone())
}

func (s *session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Running = -1
	s.snap.Done = true
	s.emit(s.snap.clone())
}

func (s *session) verdicts() []verdict.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]verdict.Verdict, len(s.snap.Results))
	for i, v := range s.snap.Results {
		out[i] = *v
	}
	return out
}
