package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"contabil-webhook-gateway/internal/core/domain"
	"contabil-webhook-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent() *domain.WebhookEvent {
	empresaID := uuid.New()
	return &domain.WebhookEvent{
		ID:          uuid.New(),
		EventType:   domain.EventDASGenerated,
		EmpresaID:   &empresaID,
		Payload:     map[string]interface{}{"das_id": "das-42", "competencia": "2026-07"},
		Status:      domain.EventStatusProcessing,
		TargetCount: 2,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func eventColumns() []string {
	return []string{"id", "event_type", "empresa_id", "payload", "status", "target_count", "successful_deliveries", "failed_deliveries", "created_at", "completed_at"}
}

func eventRow(e *domain.WebhookEvent) *pgxmock.Rows {
	return pgxmock.NewRows(eventColumns()).AddRow(
		e.ID, e.EventType, e.EmpresaID, e.Payload, e.Status,
		e.TargetCount, e.SuccessfulDeliveries, e.FailedDeliveries,
		e.CreatedAt, e.CompletedAt,
	)
}

func TestEventRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	e := newTestEvent()

	mock.ExpectExec("INSERT INTO webhook_logs").
		WithArgs(e.ID, e.EventType, e.EmpresaID, e.Payload, e.Status,
			e.TargetCount, e.SuccessfulDeliveries, e.FailedDeliveries,
			e.CreatedAt, e.CompletedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	e := newTestEvent()
	e.Finalize(1, 1, time.Now().UTC().Truncate(time.Microsecond))

	mock.ExpectExec("UPDATE webhook_logs").
		WithArgs(e.Status, e.SuccessfulDeliveries, e.FailedDeliveries, e.CompletedAt, e.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Update(context.Background(), e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	e := newTestEvent()

	mock.ExpectQuery("SELECT .+ FROM webhook_logs WHERE id").
		WithArgs(e.ID).
		WillReturnRows(eventRow(e))

	result, err := repo.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, e.ID, result.ID)
	assert.Equal(t, e.EventType, result.EventType)
	assert.Equal(t, e.Payload, result.Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM webhook_logs WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(eventColumns()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	e := newTestEvent()
	status := domain.EventStatusProcessing

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM webhook_logs WHERE status").
		WithArgs(status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM webhook_logs WHERE status .+ ORDER BY created_at DESC").
		WithArgs(status, 20, 0).
		WillReturnRows(eventRow(e))

	events, total, err := repo.List(context.Background(), ports.EventListParams{
		Status:   &status,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, e.ID, events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_List_NoFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM webhook_logs").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT .+ FROM webhook_logs ORDER BY created_at DESC").
		WithArgs(20, 20).
		WillReturnRows(pgxmock.NewRows(eventColumns()))

	events, total, err := repo.List(context.Background(), ports.EventListParams{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)

	cols := []string{"total", "completed", "partial", "failed", "processing", "successful", "failed_deliveries"}
	mock.ExpectQuery("SELECT .+ FROM webhook_logs").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			int64(10), int64(6), int64(2), int64(1), int64(1), int64(14), int64(3),
		))

	stats, err := repo.GetStats(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 10, stats.TotalEvents)
	assert.EqualValues(t, 6, stats.Completed)
	assert.EqualValues(t, 2, stats.Partial)
	assert.EqualValues(t, 14, stats.SuccessfulDeliveries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_GetStats_ScopedToEmpresa(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	empresaID := uuid.New()

	cols := []string{"total", "completed", "partial", "failed", "processing", "successful", "failed_deliveries"}
	mock.ExpectQuery("SELECT .+ FROM webhook_logs WHERE empresa_id").
		WithArgs(empresaID).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			int64(2), int64(2), int64(0), int64(0), int64(0), int64(4), int64(0),
		))

	stats, err := repo.GetStats(context.Background(), &empresaID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalEvents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_Create_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	e := newTestEvent()

	mock.ExpectExec("INSERT INTO webhook_logs").
		WithArgs(e.ID, e.EventType, e.EmpresaID, e.Payload, e.Status,
			e.TargetCount, e.SuccessfulDeliveries, e.FailedDeliveries,
			e.CreatedAt, e.CompletedAt).
		WillReturnError(errors.New("connection refused"))

	err = repo.Create(context.Background(), e)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
