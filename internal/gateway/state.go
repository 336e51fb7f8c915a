package gateway

import (
	"github.com/2beens/whole2swole/internal/gymlog"
)

func (g *Gateway) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// Err is the last store error message, empty when the last refresh succeeded.
func (g *Gateway) Err() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

func (g *Gateway) Workouts() []gymlog.Workout {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gymlog.Workout{}, g.workouts...)
}

func (g *Gateway) BodyStats() []gymlog.BodyStat {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gymlog.BodyStat{}, g.bodyStats...)
}

// StartEditWorkout selects the workout with the given id for editing.
func (g *Gateway) StartEditWorkout(id string) (gymlog.Workout, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, w := range g.workouts {
		if w.ID == id {
			selected := w
			g.editingWorkout = &selected
			return selected, true
		}
	}
	return gymlog.Workout{}, false
}

func (g *Gateway) CancelEditWorkout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.editingWorkout = nil
}

func (g *Gateway) EditingWorkout() *gymlog.Workout {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.editingWorkout == nil {
		return nil
	}
	w := *g.editingWorkout
	return &w
}

func (g *Gateway) StartEditBodyStat(id string) (gymlog.BodyStat, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.bodyStats {
		if s.ID == id {
			selected := s
			g.editingBodyStat = &selected
			return selected, true
		}
	}
	return gymlog.BodyStat{}, false
}

func (g *Gateway) CancelEditBodyStat() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.editingBodyStat = nil
}

func (g *Gateway) EditingBodyStat() *gymlog.BodyStat {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.editingBodyStat == nil {
		return nil
	}
	s := *g.editingBodyStat
	return &s
}
