package repository

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	dapr "github.com/dapr/go-sdk/client"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"newsletter-go/internal/logging"
	"newsletter-go/internal/models"
	"newsletter-go/internal/telemetry"
)

var ursula = models.SubscriberSubmission{Name: "ursula", Email: "ursula_le_guin@gmail.com"}

type uuidArg struct{}

func (uuidArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	id, err := uuid.Parse(s)
	return err == nil && id.Version() == 4
}

type recentUTCArg struct{}

func (recentUTCArg) Match(v driver.Value) bool {
	ts, ok := v.(time.Time)
	return ok && ts.Location() == time.UTC && time.Since(ts) < time.Minute
}

func setupTracing(t *testing.T) *telemetry.SpanRecorder {
	t.Helper()

	recorder := telemetry.NewSpanRecorder()
	tp := telemetry.InitTestTracing(recorder)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return recorder
}

func insertSpan(t *testing.T, recorder *telemetry.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()

	spans := recorder.SpansByName(insertSpanName)
	require.Len(t, spans, 1)

	return spans[0]
}

func assertSubmissionAttributes(t *testing.T, span sdktrace.ReadOnlySpan) {
	t.Helper()

	email, ok := telemetry.Attribute(span, "subscriber.email")
	require.True(t, ok)
	assert.Equal(t, ursula.Email, email.AsString())

	name, ok := telemetry.Attribute(span, "subscriber.name")
	require.True(t, ok)
	assert.Equal(t, ursula.Name, name.AsString())

	op, ok := telemetry.Attribute(span, "operation")
	require.True(t, ok)
	assert.Equal(t, "database.write", op.AsString())
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return sqlx.NewDb(db, "pgx"), mock
}

var expectedInsert = regexp.QuoteMeta(`INSERT INTO subscriptions (id, email, name, subscribed_at) VALUES ($1, $2, $3, $4)`)

func TestPostgresInsert(t *testing.T) {
	recorder := setupTracing(t)
	db, mock := newMockDB(t)

	mock.ExpectExec(expectedInsert).
		WithArgs(uuidArg{}, ursula.Email, ursula.Name, recentUTCArg{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresSubscriptionRepository(db, logging.NewTestLogger())
	require.NoError(t, repo.Insert(context.Background(), ursula))
	require.NoError(t, mock.ExpectationsWereMet())

	span := insertSpan(t, recorder)
	assertSubmissionAttributes(t, span)
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestPostgresInsertTwiceUsesDistinctIDs(t *testing.T) {
	setupTracing(t)
	db, mock := newMockDB(t)

	var ids []string
	capture := captureArg{into: &ids}
	for i := 0; i < 2; i++ {
		mock.ExpectExec(expectedInsert).
			WithArgs(capture, ursula.Email, ursula.Name, recentUTCArg{}).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	repo := NewPostgresSubscriptionRepository(db, logging.NewTestLogger())
	require.NoError(t, repo.Insert(context.Background(), ursula))
	require.NoError(t, repo.Insert(context.Background(), ursula))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

type captureArg struct {
	into *[]string
}

func (c captureArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*c.into = append(*c.into, s)
	}
	return ok
}

func TestPostgresInsertFailure(t *testing.T) {
	recorder := setupTracing(t)
	db, mock := newMockDB(t)

	cause := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	mock.ExpectExec(expectedInsert).WillReturnError(cause)

	var buf bytes.Buffer
	repo := NewPostgresSubscriptionRepository(db, logging.NewWithWriter(&buf, logrus.InfoLevel))

	err := repo.Insert(context.Background(), ursula)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSubscriptionNotStored)
	assert.ErrorIs(t, err, cause)
	require.NoError(t, mock.ExpectationsWereMet())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, ursula.Email, line["subscriber_email"])
	assert.Contains(t, line["error"], "connection refused")
	assert.Contains(t, line, "trace_id")

	span := insertSpan(t, recorder)
	assertSubmissionAttributes(t, span)
	assert.Equal(t, codes.Error, span.Status().Code)
}

type fakeBinding struct {
	requests []*dapr.InvokeBindingRequest
	err      error
}

func (f *fakeBinding) InvokeBinding(_ context.Context, in *dapr.InvokeBindingRequest) (*dapr.BindingEvent, error) {
	f.requests = append(f.requests, in)
	if f.err != nil {
		return nil, f.err
	}
	return &dapr.BindingEvent{}, nil
}

func TestDaprInsert(t *testing.T) {
	recorder := setupTracing(t)
	binding := &fakeBinding{}

	repo := NewDaprSubscriptionRepository(binding, "subscriptions-db", logging.NewTestLogger())
	require.NoError(t, repo.Insert(context.Background(), ursula))

	require.Len(t, binding.requests, 1)
	req := binding.requests[0]
	assert.Equal(t, "subscriptions-db", req.Name)
	assert.Equal(t, "exec", req.Operation)
	assert.Equal(t, daprInsertSubscriptionSQL, req.Metadata["sql"])

	var params []string
	require.NoError(t, json.Unmarshal([]byte(req.Metadata["params"]), &params))
	require.Len(t, params, 4)
	assert.True(t, uuidArg{}.Match(params[0]))
	assert.Equal(t, ursula.Email, params[1])
	assert.Equal(t, ursula.Name, params[2])
	ts, err := time.Parse(time.RFC3339Nano, params[3])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)

	assertSubmissionAttributes(t, insertSpan(t, recorder))
}

func TestDaprInsertFailure(t *testing.T) {
	recorder := setupTracing(t)
	binding := &fakeBinding{err: errors.New("sidecar unavailable")}

	repo := NewDaprSubscriptionRepository(binding, "subscriptions-db", logging.NewTestLogger())
	err := repo.Insert(context.Background(), ursula)

	assert.ErrorIs(t, err, models.ErrSubscriptionNotStored)
	assert.ErrorContains(t, err, "sidecar unavailable")
	assert.Equal(t, codes.Error, insertSpan(t, recorder).Status().Code)
}

func TestInMemoryInsert(t *testing.T) {
	recorder := setupTracing(t)
	repo := NewInMemorySubscriptionRepository(logging.NewTestLogger())

	require.NoError(t, repo.Insert(context.Background(), ursula))
	require.NoError(t, repo.Insert(context.Background(), ursula))

	rows := repo.List()
	require.Len(t, rows, 2)
	assert.Equal(t, ursula.Email, rows[0].Email)
	assert.Equal(t, ursula.Name, rows[0].Name)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
	assert.Len(t, recorder.SpansByOperation("database.write"), 2)
}

func TestInMemoryInsertCancelled(t *testing.T) {
	setupTracing(t)
	repo := NewInMemorySubscriptionRepository(logging.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Insert(ctx, ursula)
	assert.ErrorIs(t, err, models.ErrSubscriptionNotStored)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repo.List())
}

func TestInsertReportsToProviderInstalledAfterConstruction(t *testing.T) {
	repo := NewInMemorySubscriptionRepository(logging.NewTestLogger())

	first := setupTracing(t)
	require.NoError(t, repo.Insert(context.Background(), ursula))

	second := setupTracing(t)
	require.NoError(t, repo.Insert(context.Background(), ursula))

	assert.Len(t, first.SpansByName(insertSpanName), 1)
	assert.Len(t, second.SpansByName(insertSpanName), 1)
}

func TestWithTracerProviderPinsProvider(t *testing.T) {
	global := setupTracing(t)

	pinned := telemetry.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(pinned))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	db, mock := newMockDB(t)
	mock.ExpectExec(expectedInsert).WillReturnResult(sqlmock.NewResult(0, 1))

	repos := []SubscriptionRepository{
		NewInMemorySubscriptionRepository(logging.NewTestLogger(), WithTracerProvider(tp)),
		NewPostgresSubscriptionRepository(db, logging.NewTestLogger(), WithTracerProvider(tp)),
		NewDaprSubscriptionRepository(&fakeBinding{}, "subscriptions-db", logging.NewTestLogger(), WithTracerProvider(tp)),
	}
	for _, repo := range repos {
		require.NoError(t, repo.Insert(context.Background(), ursula))
	}
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Len(t, pinned.SpansByName(insertSpanName), len(repos))
	assert.Empty(t, global.SpansByName(insertSpanName))
}
