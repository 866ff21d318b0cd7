package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
)

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func bookingRow(status string, cust, prov bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "customer_id", "listing_id", "date", "hours", "status",
		"customer_completed", "provider_completed", "created_at", "updated_at"}).
		AddRow("b1", "c1", "l1", now, 2, status, cust, prov, now, now)
}

func TestActorRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO actors").
		WithArgs(sqlmock.AnyArg(), "Ann", "ann@example.com", "", "customer", "hash", now).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	a := &model.Actor{ID: "a1", Name: "Ann", Email: " Ann@Example.com", Role: model.RoleCustomer,
		PasswordHash: "hash", CreatedAt: now}
	err := NewActorRepo(db).Create(context.Background(), a)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActorRepo_GetByIDMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM actors WHERE id=").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewActorRepo(db).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActorRepo_GetManyDedupes(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "name", "email", "contact", "role", "password_hash", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM actors WHERE id IN (?,?)")).
		WithArgs("a1", "a2").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a1", "Ann", "ann@example.com", "", "customer", "h", now).
			AddRow("a2", "Bo", "bo@example.com", "", "provider", "h", now))

	got, err := NewActorRepo(db).GetMany(context.Background(), []string{"a1", "a2", "a1", ""})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, model.RoleProvider, got["a2"].Role)
}

func TestTokenRepo_ValidateRevoked(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT actor_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("hash").
		WillReturnRows(sqlmock.NewRows([]string{"actor_id", "expires_at", "revoked_at"}).
			AddRow("a1", time.Now().Add(time.Hour), now))

	_, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepo_TransitionConflict(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status IN (?)")).
		WithArgs("cancelled", now, "b1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM bookings b WHERE b.id").
		WithArgs("b1").
		WillReturnRows(bookingRow("confirmed", false, false))

	b, err := NewBookingRepo(db).Transition(context.Background(), "b1",
		[]model.BookingStatus{model.BookingPending}, model.BookingCancelled, now)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_TransitionMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE bookings SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM bookings b WHERE b.id").
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewBookingRepo(db).Transition(context.Background(), "b1",
		[]model.BookingStatus{model.BookingPending}, model.BookingConfirmed, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepo_MarkComplete(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE bookings SET\\s+status = CASE").
		WithArgs(false, true, false, true, now, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings b WHERE b.id").
		WithArgs("b1").
		WillReturnRows(bookingRow("complete", true, true))

	b, err := NewBookingRepo(db).MarkComplete(context.Background(), "b1", model.CompletionMark{Provider: true}, now)
	require.NoError(t, err)
	assert.Equal(t, model.BookingComplete, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_MarkCompleteRepeat(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE bookings SET\\s+status = CASE").
		WithArgs(true, false, true, false, now, "b1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM bookings b WHERE b.id").
		WithArgs("b1").
		WillReturnRows(bookingRow("confirmed", true, false))

	b, err := NewBookingRepo(db).MarkComplete(context.Background(), "b1", model.CompletionMark{Customer: true}, now)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.True(t, b.CustomerCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_MarkCompletePending(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE bookings SET\\s+status = CASE").
		WithArgs(true, false, true, false, now, "b1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM bookings b WHERE b.id").
		WithArgs("b1").
		WillReturnRows(bookingRow("pending", false, false))

	_, err := NewBookingRepo(db).MarkComplete(context.Background(), "b1", model.CompletionMark{Customer: true}, now)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_SearchBuildsFilter(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "title", "description", "price", "location", "contact", "category",
		"provider_id", "aggregate_rating", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?) AND category = ? ORDER BY aggregate_rating DESC, created_at DESC LIMIT ?")).
		WithArgs(`%50\%%`, `%50\%%`, `%50\%%`, "Cleaning", 3).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("l1", "50% off", "d", "12.00", "Austin", "", "Cleaning", "p1", 4.5, now, now))

	out, err := NewListingRepo(db).Search(context.Background(),
		model.ListingFilter{Query: " 50% ", Category: "Cleaning"}, 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Price.Equal(decimal.NewFromInt(12)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_UpdateForbidden(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "title", "description", "price", "location", "contact", "category",
		"provider_id", "aggregate_rating", "created_at", "updated_at"}
	mock.ExpectExec("UPDATE listings SET title").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM listings WHERE id").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("l1", "t", "d", "1", "x", "", "Cleaning", "owner", 0.0, now, now))

	_, err := NewListingRepo(db).Update(context.Background(), "l1", "intruder", model.ListingFields{}, now)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListingRepo_DeleteCascadeRollsBackOnMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bookings WHERE listing_id").WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM reviews WHERE listing_id").WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM listings WHERE id").WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewListingRepo(db).DeleteCascade(context.Background(), "l1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepo_DeleteCascadeCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bookings").WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM reviews").WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM listings").WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewListingRepo(db).DeleteCascade(context.Background(), "l1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepo_Ratings(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT rating FROM reviews").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(5).AddRow(3))

	got, err := NewReviewRepo(db).Ratings(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3}, got)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
