//go:build integration_test || all_tests

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/2beens/whole2swole/internal/db"
	"github.com/2beens/whole2swole/internal/gymlog"
	"github.com/2beens/whole2swole/internal/store"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testEmail  = "whole2swole@local.app"
	testSecret = "4321"
)

type StoreTestSuite struct {
	suite.Suite

	dockerPool *dockertest.Pool
	resource   *dockertest.Resource
	pool       *pgxpool.Pool
	sqlDB      *sql.DB
	store      *Store
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupSuite() {
	t := s.T()
	ctx := context.Background()

	var err error
	s.dockerPool, err = dockertest.NewPool("")
	require.NoError(t, err)
	require.NoError(t, s.dockerPool.Client.Ping())

	s.resource, err = s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=whole2swole",
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err)

	dsn := fmt.Sprintf(
		"postgres://postgres@localhost:%s/whole2swole?sslmode=disable",
		s.resource.GetPort("5432/tcp"),
	)

	require.NoError(t, s.dockerPool.Retry(func() error {
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		if err := sqlDB.Ping(); err != nil {
			_ = sqlDB.Close()
			return err
		}
		s.sqlDB = sqlDB
		return nil
	}))

	s.pool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
		ConnString: dsn,
		MaxConns:   4,
	})
	require.NoError(t, err)

	s.store = New(s.pool)
	require.NoError(t, s.store.Migrate(ctx))
	// applying it twice is fine
	require.NoError(t, s.store.Migrate(ctx))

	_, err = s.store.UpsertAccount(ctx, testEmail, "0000")
	require.NoError(t, err)
	_, err = s.store.UpsertAccount(ctx, testEmail, testSecret)
	require.NoError(t, err)
}

func (s *StoreTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	if s.resource != nil {
		if err := s.resource.Close(); err != nil {
			fmt.Printf("postgres teardown: %s\n", err)
		}
	}
}

func (s *StoreTestSuite) SetupTest() {
	_, err := s.sqlDB.Exec(`TRUNCATE workouts, body_stats;`)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.SignOut(context.Background()))
}

func (s *StoreTestSuite) signIn() {
	require.NoError(s.T(), s.store.SignInWithPassword(context.Background(), testEmail, testSecret))
}

func (s *StoreTestSuite) TestSignIn() {
	t := s.T()
	ctx := context.Background()

	var events []store.SessionEvent
	unsubscribe := s.store.OnSessionChange(func(ctx context.Context, event store.SessionEvent, session *store.Session) {
		events = append(events, event)
	})
	defer unsubscribe()

	// the first secret was replaced
	err := s.store.SignInWithPassword(ctx, testEmail, "0000")
	assert.Equal(t, invalidCredentials, store.MessageOf(err))
	err = s.store.SignInWithPassword(ctx, "someone@else.app", testSecret)
	assert.Equal(t, invalidCredentials, store.MessageOf(err))
	assert.Empty(t, events)

	s.signIn()
	session, err := s.store.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, testEmail, session.Email)
	assert.NotEmpty(t, session.UserID)

	require.NoError(t, s.store.SignOut(ctx))
	session, err = s.store.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Equal(t, []store.SessionEvent{store.SignedIn, store.SignedOut}, events)
}

func (s *StoreTestSuite) TestWorkouts_InsertSelectUpdate() {
	t := s.T()
	ctx := context.Background()
	s.signIn()

	june1 := gymlog.NewDate(2024, time.June, 1)
	june3 := gymlog.NewDate(2024, time.June, 3)
	notes := gofakeit.Sentence(6)
	duration := 45

	require.NoError(t, s.store.Insert(ctx, store.Workouts, gymlog.WorkoutData{
		Date:  june1,
		Title: "Legs",
		Exercises: []gymlog.Exercise{
			{Name: "Squat", Sets: 5, Reps: 5, Weight: 100},
		},
	}))
	require.NoError(t, s.store.Insert(ctx, store.Workouts, gymlog.WorkoutData{
		Date:     june3,
		Title:    "Push",
		Duration: &duration,
		Notes:    &notes,
		Exercises: []gymlog.Exercise{
			{Name: "Bench Press", Sets: 3, Reps: 10, Weight: 60},
			{Name: "Dips", Sets: 3, Reps: 12},
		},
	}))
	require.NoError(t, s.store.Insert(ctx, store.Workouts, gymlog.WorkoutData{
		Date:  june3,
		Title: "Evening run",
	}))

	rows, err := s.store.SelectAll(ctx, store.Workouts, store.RecencyOrder...)
	require.NoError(t, err)
	workouts, dropped := gymlog.DecodeWorkouts(rows)
	require.Zero(t, dropped)
	require.Len(t, workouts, 3)

	// same date: most recently created first
	assert.Equal(t, "Evening run", workouts[0].Title)
	assert.Empty(t, workouts[0].Exercises)
	assert.Equal(t, "Push", workouts[1].Title)
	assert.Equal(t, "Legs", workouts[2].Title)
	assert.Equal(t, "2024-06-03", workouts[1].Date.String())
	require.NotNil(t, workouts[1].Duration)
	assert.Equal(t, 45, *workouts[1].Duration)
	require.NotNil(t, workouts[1].Notes)
	assert.Equal(t, notes, *workouts[1].Notes)
	require.Len(t, workouts[1].Exercises, 2)
	assert.Equal(t, "Bench Press", workouts[1].Exercises[0].Name)
	assert.Nil(t, workouts[1].Exercises[1].Notes)

	push := workouts[1]
	require.NoError(t, s.store.UpdateByID(ctx, store.Workouts, push.ID, gymlog.WorkoutData{
		Date:      june1,
		Title:     "Push heavy",
		Exercises: push.Exercises[:1],
	}))

	rows, err = s.store.SelectAll(ctx, store.Workouts, store.RecencyOrder...)
	require.NoError(t, err)
	workouts, _ = gymlog.DecodeWorkouts(rows)
	require.Len(t, workouts, 3)
	assert.Equal(t, "Push heavy", workouts[1].Title)
	assert.Nil(t, workouts[1].Duration)
	assert.Nil(t, workouts[1].Notes)
	assert.Len(t, workouts[1].Exercises, 1)
	assert.Equal(t, push.ID, workouts[1].ID)
	assert.Equal(t, push.CreatedAt.UnixMicro(), workouts[1].CreatedAt.UnixMicro())

	var updatedAfterCreate bool
	require.NoError(t, s.sqlDB.QueryRow(
		`SELECT updated_at >= created_at FROM workouts WHERE id = $1`, push.ID,
	).Scan(&updatedAfterCreate))
	assert.True(t, updatedAfterCreate)

	// unknown ids are not an error
	require.NoError(t, s.store.UpdateByID(ctx, store.Workouts, "00000000-0000-0000-0000-000000000000", map[string]any{"title": "x"}))
	err = s.store.UpdateByID(ctx, store.Workouts, "not-a-uuid", map[string]any{"title": "x"})
	assert.Contains(t, store.MessageOf(err), "invalid input syntax for type uuid")
}

func (s *StoreTestSuite) TestBodyStats_InsertSelectUpdate() {
	t := s.T()
	ctx := context.Background()
	s.signIn()

	weight := 82.5
	waist := 84.0
	require.NoError(t, s.store.Insert(ctx, store.BodyStats, gymlog.BodyStatData{
		Date:         gymlog.NewDate(2024, time.June, 2),
		Weight:       &weight,
		Measurements: gymlog.Measurements{Waist: &waist},
	}))
	require.NoError(t, s.store.Insert(ctx, store.BodyStats, gymlog.BodyStatData{
		Date: gymlog.NewDate(2024, time.June, 1),
	}))

	rows, err := s.store.SelectAll(ctx, store.BodyStats, store.RecencyOrder...)
	require.NoError(t, err)
	stats, dropped := gymlog.DecodeBodyStats(rows)
	require.Zero(t, dropped)
	require.Len(t, stats, 2)

	require.NotNil(t, stats[0].Weight)
	assert.Equal(t, 82.5, *stats[0].Weight)
	assert.Nil(t, stats[0].BodyFat)
	require.NotNil(t, stats[0].Measurements.Waist)
	assert.Equal(t, 84.0, *stats[0].Measurements.Waist)
	assert.Nil(t, stats[0].Measurements.Chest)
	assert.Nil(t, stats[1].Weight)
	assert.True(t, stats[1].Measurements.IsEmpty())

	var measurements string
	require.NoError(t, s.sqlDB.QueryRow(
		`SELECT measurements::text FROM body_stats WHERE id = $1`, stats[1].ID,
	).Scan(&measurements))
	assert.Equal(t, "{}", measurements)

	bodyFat := 18.2
	require.NoError(t, s.store.UpdateByID(ctx, store.BodyStats, stats[1].ID, map[string]any{"body_fat": bodyFat}))
	rows, err = s.store.SelectAll(ctx, store.BodyStats, store.RecencyOrder...)
	require.NoError(t, err)
	stats, _ = gymlog.DecodeBodyStats(rows)
	require.NotNil(t, stats[1].BodyFat)
	assert.Equal(t, 18.2, *stats[1].BodyFat)

	err = s.store.Insert(ctx, store.BodyStats, map[string]any{"weight": 80})
	assert.Contains(t, store.MessageOf(err), `null value in column "date"`)
}
