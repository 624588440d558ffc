package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/service/admin"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var revolvingCols = strings.Fields(strings.ReplaceAll(revolvingColumns, ",", " "))

func revolvingRow(rows *sqlmock.Rows, id int64, status string) *sqlmock.Rows {
	return rows.AddRow(
		id, strings.Repeat("a", 64), "Ana García", "+34 612 345 678", "ana@example.com", "Banco Uno", true,
		3000.0, 100.0, 25.0, int64(24), 480.0,
		false, true, true, false,
		"203.0.113.9", "Mozilla/5.0", "Windows", "Chrome", "Escritorio",
		"1920x1080", "es-ES", "nuevo", status, nil, "",
		nil, time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	)
}

func TestInsertRevolving_ThenListPending(t *testing.T) {
	db, mock := newMock(t)
	leads := NewLeadRepo(db)
	relays := NewRelayRepo(db)

	lead := &domain.Lead{
		Token:     strings.Repeat("a", 64),
		Funnel:    domain.FunnelRevolving,
		Name:      "Ana García",
		Email:     "ana@example.com",
		Phone:     "+34 612 345 678",
		Revolving: &domain.RevolvingDetails{Entity: "Banco Uno", Debt: 3000},
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectQuery(`INSERT INTO leads_revolving`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(`SELECT id, token, nombre`).
		WithArgs(int64(0), 50).
		WillReturnRows(revolvingRow(sqlmock.NewRows(revolvingCols), 11, "pending"))

	id, err := leads.Insert(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	pending, err := relays.ListPending(context.Background(), 0, 50)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	got := pending[0]
	assert.Equal(t, int64(11), got.ID)
	assert.Equal(t, domain.RelayPending, got.RelayStatus)
	assert.Equal(t, domain.StageNew, got.Stage)
	assert.Equal(t, 24, got.Revolving.MonthsPaying)
	assert.Equal(t, 480.0, got.Revolving.Recoverable)
	assert.Nil(t, got.ClaimedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertROI(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)

	mock.ExpectQuery(`INSERT INTO leads \(`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	id, err := repo.Insert(context.Background(), &domain.Lead{
		Funnel: domain.FunnelROI,
		Token:  strings.Repeat("b", 64),
		ROI:    &domain.ROIDetails{ProductName: "Curso", Strategy: "plain"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Errors(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)

	_, err := repo.Insert(context.Background(), &domain.Lead{Funnel: "other"})
	assert.Error(t, err)

	_, err = repo.Insert(context.Background(), &domain.Lead{Funnel: domain.FunnelROI})
	assert.Error(t, err, "roi details are required")

	mock.ExpectQuery(`INSERT INTO leads_revolving`).WillReturnError(errors.New("duplicate key"))
	_, err = repo.Insert(context.Background(), &domain.Lead{Funnel: domain.FunnelRevolving, Revolving: &domain.RevolvingDetails{}})
	assert.ErrorContains(t, err, "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaim_OnlyOneWinner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRelayRepo(db)
	now := time.Now().UTC()

	claim := regexp.QuoteMeta(`WHERE id = $1 AND relay_status = 'pending'`)
	mock.ExpectExec(claim).WithArgs(int64(3), now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(claim).WithArgs(int64(3), now).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Claim(context.Background(), 3, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Claim(context.Background(), 3, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRelayed_Idempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRelayRepo(db)

	mark := regexp.QuoteMeta(`WHERE id = $1 AND relay_status <> 'relayed'`)
	mock.ExpectExec(mark).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(mark).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkRelayed(context.Background(), 3))
	require.NoError(t, repo.MarkRelayed(context.Background(), 3), "second mark is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseAndReclaim(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRelayRepo(db)
	cutoff := time.Now().Add(-5 * time.Minute)

	mock.ExpectExec(regexp.QuoteMeta(`SET relay_status = 'pending', claimed_at = NULL, relay_error = $2`)).
		WithArgs(int64(4), "Error HTTP 500").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`WHERE relay_status = 'claimed' AND claimed_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Release(context.Background(), 4, "Error HTTP 500"))
	n, err := repo.ReclaimStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminList_BuildsFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAdminRepo(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where := `1=1 AND estado = $1 AND fecha_registro >= $2 AND (nombre ILIKE $3 OR email ILIKE $3 OR telefono ILIKE $3 OR entidad_financiera ILIKE $3)`
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM leads_revolving WHERE `+where)).
		WithArgs("nuevo", from, `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY fecha_registro DESC, id DESC LIMIT $4 OFFSET $5`)).
		WithArgs("nuevo", from, `%50\%%`, 100, 0).
		WillReturnRows(revolvingRow(sqlmock.NewRows(revolvingCols), 8, "relayed"))

	leads, total, err := repo.List(context.Background(), admin.Filter{
		Funnel: domain.FunnelRevolving,
		Stage:  domain.StageNew,
		From:   from,
		Search: "50%",
		Limit:  100,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, leads, 1)
	assert.Equal(t, domain.RelayRelayed, leads[0].RelayStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUpdateStage(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAdminRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE leads SET stage = $1 WHERE id = $2`)).
		WithArgs("ganado", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE leads_revolving SET estado = $1 WHERE id = $2`)).
		WithArgs("contactado", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStage(context.Background(), domain.FunnelROI, 2, domain.StageWon))
	err := repo.UpdateStage(context.Background(), domain.FunnelRevolving, 99, domain.StageContacted)
	assert.ErrorIs(t, err, admin.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminStats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAdminRepo(db)
	today := time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM leads_revolving`).
		WithArgs(today).
		WillReturnRows(sqlmock.NewRows([]string{"total", "today", "new", "pending", "recoverable"}).
			AddRow(10, 2, 4, 3, 1234.5))

	st, err := repo.Stats(context.Background(), domain.FunnelRevolving, today)
	require.NoError(t, err)
	assert.Equal(t, &admin.Stats{Funnel: domain.FunnelRevolving, Total: 10, Today: 2, New: 4, PendingRelay: 3, Recoverable: 1234.5}, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminGetByToken_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAdminRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM leads WHERE token = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM leads_revolving WHERE token = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, admin.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminGetByToken_Revolving(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAdminRepo(db)
	token := strings.Repeat("a", 64)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM leads WHERE token = $1`)).
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM leads_revolving WHERE token = $1`)).
		WithArgs(token).
		WillReturnRows(revolvingRow(sqlmock.NewRows(revolvingCols), 11, "relayed"))

	l, err := repo.GetByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.FunnelRevolving, l.Funnel)
	assert.Nil(t, l.ROI)
	require.NotNil(t, l.Revolving)
	assert.Equal(t, "Banco Uno", l.Revolving.Entity)
	assert.Equal(t, 480.0, l.Revolving.Recoverable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminGetByToken_QueryError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAdminRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM leads WHERE token = $1`)).
		WithArgs("tok").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByToken(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, admin.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRecord(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	ts := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (event_id) DO NOTHING`)).
		WithArgs("6f1c1a52-5f0e-4a59-9d7e-3c2b1a0f9e8d", "opened", "", nil, "tok", "203.0.113.9", "UA", ts).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM lead_events WHERE occurred_at < $1`)).
		WillReturnResult(sqlmock.NewResult(0, 7))

	err := repo.Record(context.Background(), domain.LeadEvent{
		ID:        "6f1c1a52-5f0e-4a59-9d7e-3c2b1a0f9e8d",
		Type:      domain.EventOpened,
		Token:     "tok",
		IPAddress: "203.0.113.9",
		UserAgent: "UA",
		Timestamp: ts,
	})
	require.NoError(t, err)

	n, err := repo.PruneBefore(context.Background(), ts.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
