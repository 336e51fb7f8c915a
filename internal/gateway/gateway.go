package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/2beens/whole2swole/internal/gymlog"
	"github.com/2beens/whole2swole/internal/store"
	"github.com/2beens/whole2swole/internal/telemetry/metrics"
	"github.com/2beens/whole2swole/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -destination=store_mocks_test.go -package=gateway_test github.com/2beens/whole2swole/internal/store Store

// Gateway owns the single user's session projection, both collections
// and the editing selections. The lock is never held across a store call.
type Gateway struct {
	store       store.Store
	metrics     *metrics.Manager
	unsubscribe func()

	mu              sync.Mutex
	authenticated   bool
	workouts        []gymlog.Workout
	bodyStats       []gymlog.BodyStat
	lastErr         string
	editingWorkout  *gymlog.Workout
	editingBodyStat *gymlog.BodyStat
}

func New(s store.Store, metricsManager *metrics.Manager) *Gateway {
	g := &Gateway{
		store:     s,
		metrics:   metricsManager,
		workouts:  []gymlog.Workout{},
		bodyStats: []gymlog.BodyStat{},
	}
	g.unsubscribe = s.OnSessionChange(g.handleSessionChange)
	return g
}

// Init checks for an existing store session and loads both collections when there is one.
func (g *Gateway) Init(ctx context.Context) error {
	session, err := g.store.GetSession(ctx)
	if err != nil {
		g.setErr(err)
		return err
	}
	if session == nil {
		return nil
	}

	g.mu.Lock()
	g.authenticated = true
	g.mu.Unlock()

	return g.Refresh(ctx)
}

func (g *Gateway) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

func (g *Gateway) handleSessionChange(ctx context.Context, event store.SessionEvent, _ *store.Session) {
	log.Debugf("gateway: session event %s", event)
	switch event {
	case store.SignedIn:
		g.mu.Lock()
		g.authenticated = true
		g.mu.Unlock()
		// the error stays visible through Err
		_ = g.Refresh(ctx)
	case store.SignedOut:
		g.clear()
	}
}

func (g *Gateway) clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = false
	g.workouts = []gymlog.Workout{}
	g.bodyStats = []gymlog.BodyStat{}
	g.editingWorkout = nil
	g.editingBodyStat = nil
}

// Refresh fetches workouts, then body stats, both newest first. The first failure aborts
// the sequence and becomes the visible error; collections are replaced only when both succeed.
func (g *Gateway) Refresh(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gateway.refresh")
	defer tracing.EndSpanWithErrCheck(span, &err)

	g.mu.Lock()
	g.lastErr = ""
	g.mu.Unlock()

	workoutRows, err := g.selectAll(ctx, store.Workouts)
	if err != nil {
		g.setErr(err)
		return err
	}
	statRows, err := g.selectAll(ctx, store.BodyStats)
	if err != nil {
		g.setErr(err)
		return err
	}

	workouts, droppedWorkouts := gymlog.DecodeWorkouts(workoutRows)
	bodyStats, droppedStats := gymlog.DecodeBodyStats(statRows)
	span.SetAttributes(
		attribute.Int("workouts", len(workouts)),
		attribute.Int("body_stats", len(bodyStats)),
	)

	if g.metrics != nil {
		g.metrics.CounterDroppedRecords.WithLabelValues(string(store.Workouts)).Add(float64(droppedWorkouts))
		g.metrics.CounterDroppedRecords.WithLabelValues(string(store.BodyStats)).Add(float64(droppedStats))
		g.metrics.GaugeCollectionSize.WithLabelValues(string(store.Workouts)).Set(float64(len(workouts)))
		g.metrics.GaugeCollectionSize.WithLabelValues(string(store.BodyStats)).Set(float64(len(bodyStats)))
	}

	g.mu.Lock()
	g.workouts = workouts
	g.bodyStats = bodyStats
	g.mu.Unlock()

	return nil
}

func (g *Gateway) selectAll(ctx context.Context, collection store.Collection) ([]json.RawMessage, error) {
	start := time.Now()
	rows, err := g.store.SelectAll(ctx, collection, store.RecencyOrder...)
	g.observe("select_"+string(collection), start, err)
	if err != nil {
		log.Errorf("select %s: %s", collection, err)
		return nil, err
	}
	return rows, nil
}

func (g *Gateway) CreateWorkout(ctx context.Context, data gymlog.WorkoutData) error {
	return g.insert(ctx, store.Workouts, data)
}

// UpdateWorkout patches the workout and leaves workout editing mode on success.
func (g *Gateway) UpdateWorkout(ctx context.Context, id string, data gymlog.WorkoutData) error {
	return g.update(ctx, store.Workouts, id, data, func() {
		g.editingWorkout = nil
	})
}

func (g *Gateway) CreateBodyStat(ctx context.Context, data gymlog.BodyStatData) error {
	return g.insert(ctx, store.BodyStats, data)
}

func (g *Gateway) UpdateBodyStat(ctx context.Context, id string, data gymlog.BodyStatData) error {
	return g.update(ctx, store.BodyStats, id, data, func() {
		g.editingBodyStat = nil
	})
}

func (g *Gateway) insert(ctx context.Context, collection store.Collection, row any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gateway.insert")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("collection", string(collection)))

	start := time.Now()
	err = g.store.Insert(ctx, collection, row)
	g.observe("insert_"+string(collection), start, err)
	if err != nil {
		log.Errorf("insert %s: %s", collection, err)
		g.setErr(err)
		return err
	}

	// a failed refresh does not undo the write, its error stays visible through Err
	_ = g.Refresh(ctx)
	return nil
}

func (g *Gateway) update(ctx context.Context, collection store.Collection, id string, patch any, onSuccess func()) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gateway.update")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(
		attribute.String("collection", string(collection)),
		attribute.String("id", id),
	)

	start := time.Now()
	err = g.store.UpdateByID(ctx, collection, id, patch)
	g.observe("update_"+string(collection), start, err)
	if err != nil {
		log.Errorf("update %s [%s]: %s", collection, id, err)
		g.setErr(err)
		return err
	}

	g.mu.Lock()
	onSuccess()
	g.mu.Unlock()

	_ = g.Refresh(ctx)
	return nil
}

// SignOut signs out of the store. Local state is cleared even when the store call fails.
func (g *Gateway) SignOut(ctx context.Context) error {
	err := g.store.SignOut(ctx)
	g.clear()
	if err != nil {
		log.Errorf("sign out: %s", err)
		return err
	}
	return nil
}

func (g *Gateway) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastErr = store.MessageOf(err)
}

func (g *Gateway) observe(op string, start time.Time, err error) {
	if g.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	g.metrics.HistogramStoreCallDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
