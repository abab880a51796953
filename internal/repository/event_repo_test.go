package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"garage_door"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestEventSave_TransactionalCurrentPlusHistory(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events_current").
		WithArgs("fw-2024", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO events_history").
		WithArgs(sqlmock.AnyArg(), "fw-2024", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	prev := garage_door.NewSensorEvent(garage_door.StateClosed, 1000)
	t0 := time.Now().Unix()
	got, err := repo.Save(ctx(t), garage_door.EventRecord{
		BuildTimestamp: "fw-2024",
		CurrentEvent:   garage_door.NewSensorEvent(garage_door.StateOpening, 1010),
		PreviousEvent:  &prev,
	})
	t1 := time.Now().Unix()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got.WrittenAtSeconds < t0 || got.WrittenAtSeconds > t1 {
		t.Fatalf("write time not store-assigned: %d", got.WrittenAtSeconds)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventSave_HistoryFailureRollsBack(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events_current").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO events_history").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Save(ctx(t), garage_door.EventRecord{
		BuildTimestamp: "fw-2024",
		CurrentEvent:   garage_door.NewSensorEvent(garage_door.StateOpen, 1000),
	})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventLoadCurrent(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	current := garage_door.NewSensorEvent(garage_door.StateOpen, 2000)
	previous := garage_door.NewSensorEvent(garage_door.StateOpening, 1990)
	currentJSON, _ := json.Marshal(current)
	previousJSON, _ := json.Marshal(previous)

	rows := sqlmock.NewRows([]string{"current_event", "previous_event", "written_at"}).
		AddRow(string(currentJSON), string(previousJSON), int64(2001))
	mock.ExpectQuery("SELECT current_event, previous_event, written_at").
		WithArgs("fw-2024").
		WillReturnRows(rows)

	rec, err := repo.LoadCurrent(ctx(t), "fw-2024")
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.CurrentEvent.Type != garage_door.StateOpen || rec.WrittenAtSeconds != 2001 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.PreviousEvent == nil || rec.PreviousEvent.Type != garage_door.StateOpening {
		t.Fatalf("previous event lost: %+v", rec.PreviousEvent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventLoadCurrent_UnknownDeviceIsNil(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	mock.ExpectQuery("SELECT current_event, previous_event, written_at").
		WithArgs("never-seen").
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.LoadCurrent(ctx(t), "never-seen")
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestEventRecent_NullPreviousAndOrder(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	newest, _ := json.Marshal(garage_door.NewSensorEvent(garage_door.StateOpen, 2000))
	oldest, _ := json.Marshal(garage_door.NewSensorEvent(garage_door.StateClosed, 1000))

	rows := sqlmock.NewRows([]string{"current_event", "previous_event", "written_at"}).
		AddRow(string(newest), nil, int64(2000)).
		AddRow(string(oldest), nil, int64(1000))
	mock.ExpectQuery("SELECT current_event, previous_event, written_at").
		WithArgs("fw-2024", 12).
		WillReturnRows(rows)

	got, err := repo.Recent(ctx(t), "fw-2024", 12)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	if got[0].CurrentEvent.Type != garage_door.StateOpen || got[1].CurrentEvent.Type != garage_door.StateClosed {
		t.Fatalf("order lost: %+v", got)
	}
	if got[0].PreviousEvent != nil {
		t.Fatalf("NULL previous should stay nil, got %+v", got[0].PreviousEvent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventDeviceIDs(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	rows := sqlmock.NewRows([]string{"build_timestamp"}).
		AddRow("fw-2024").
		AddRow("fw-2025")
	mock.ExpectQuery("SELECT build_timestamp FROM events_current").
		WillReturnRows(rows)

	ids, err := repo.DeviceIDs(ctx(t))
	if err != nil {
		t.Fatalf("DeviceIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "fw-2024" || ids[1] != "fw-2025" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestEventPurgeHistoryBefore(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	// Dry run counts without deleting.
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(500)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(7)))

	n, err := repo.PurgeHistoryBefore(ctx(t), 500, true)
	if err != nil {
		t.Fatalf("PurgeHistoryBefore dry run: %v", err)
	}
	if n != 7 {
		t.Fatalf("dry run count=%d, want 7", n)
	}

	// Real run deletes.
	mock.ExpectExec("DELETE FROM events_history").
		WithArgs(int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err = repo.PurgeHistoryBefore(ctx(t), 500, false)
	if err != nil {
		t.Fatalf("PurgeHistoryBefore: %v", err)
	}
	if n != 7 {
		t.Fatalf("deleted=%d, want 7", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
