package enrollment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/schedule"
)

var (
	testNow    = time.Date(2025, time.March, 3, 8, 0, 0, 0, schedule.Location)
	classStart = time.Date(2025, time.March, 10, 10, 0, 0, 0, schedule.Location)
)

func newTestRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func expectClassLock(mock sqlmock.Sqlmock, classID, seats int) {
	mock.ExpectQuery(`SELECT id, name, start_time, available_seats FROM classes WHERE id = \$1 FOR UPDATE`).
		WithArgs(classID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_time", "available_seats"}).
			AddRow(classID, "Spinning", classStart, seats))
}

func expectMemberLock(mock sqlmock.Sqlmock, memberID int, role string, remaining int, lastReset interface{}) {
	mock.ExpectQuery(`SELECT id, role, COALESCE\(remaining_classes, 0\) AS remaining_classes, last_reset_month FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(memberID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "remaining_classes", "last_reset_month"}).
			AddRow(memberID, role, remaining, lastReset))
}

func expectNotEnrolled(mock sqlmock.Sqlmock, memberID, classID int, enrolled bool) {
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM enrollments WHERE member_id = \$1 AND class_id = \$2\)`).
		WithArgs(memberID, classID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(enrolled))
}

func TestRepository_EnrollMember_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	lastReset := time.Date(2025, time.March, 1, 9, 0, 0, 0, schedule.Location)

	mock.ExpectBegin()
	expectClassLock(mock, 7, 3)
	expectMemberLock(mock, 5, "member", 4, lastReset)
	expectNotEnrolled(mock, 5, 7, false)
	mock.ExpectQuery(`INSERT INTO enrollments`).
		WithArgs(5, 7, "member", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "class_id", "payment_method", "registered_at"}).
			AddRow(11, 5, 7, "member", testNow))
	mock.ExpectExec(`UPDATE classes SET available_seats = available_seats - 1 WHERE id = \$1 AND available_seats > 0`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET remaining_classes = \$1, last_reset_month = \$2 WHERE id = \$3`).
		WithArgs(3, testNow, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.EnrollMember(context.Background(), 5, 7, testNow)

	require.NoError(t, err)
	assert.Equal(t, 11, res.Enrollment.ID)
	assert.Equal(t, PaymentMember, res.Enrollment.PaymentMethod)
	assert.Equal(t, 3, res.RemainingClasses)
	assert.False(t, res.QuotaRefilled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_EnrollMember_RefillsQuotaFromPriorMonth(t *testing.T) {
	repo, mock := newTestRepo(t)
	lastReset := time.Date(2025, time.February, 20, 9, 0, 0, 0, schedule.Location)

	mock.ExpectBegin()
	expectClassLock(mock, 7, 3)
	expectMemberLock(mock, 5, "member", 0, lastReset)
	expectNotEnrolled(mock, 5, 7, false)
	mock.ExpectQuery(`INSERT INTO enrollments`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "class_id", "payment_method", "registered_at"}).
			AddRow(12, 5, 7, "member", testNow))
	mock.ExpectExec(`UPDATE classes SET available_seats`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET remaining_classes`).
		WithArgs(7, testNow, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.EnrollMember(context.Background(), 5, 7, testNow)

	require.NoError(t, err)
	assert.Equal(t, 7, res.RemainingClasses)
	assert.True(t, res.QuotaRefilled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_EnrollMember_NeverResetMember(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	expectClassLock(mock, 7, 1)
	expectMemberLock(mock, 5, "member", 0, nil)
	expectNotEnrolled(mock, 5, 7, false)
	mock.ExpectQuery(`INSERT INTO enrollments`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "class_id", "payment_method", "registered_at"}).
			AddRow(13, 5, 7, "member", testNow))
	mock.ExpectExec(`UPDATE classes SET available_seats`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET remaining_classes`).
		WithArgs(7, testNow, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.EnrollMember(context.Background(), 5, 7, testNow)

	require.NoError(t, err)
	assert.Equal(t, 7, res.RemainingClasses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_EnrollMember_CheckFailuresRollBack(t *testing.T) {
	sameMonth := time.Date(2025, time.March, 1, 9, 0, 0, 0, schedule.Location)

	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		want   error
	}{
		{
			name: "class not found",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM classes WHERE id = \$1 FOR UPDATE`).
					WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_time", "available_seats"}))
			},
			want: apperr.ErrClassNotFound,
		},
		{
			name: "member not found",
			expect: func(mock sqlmock.Sqlmock) {
				expectClassLock(mock, 7, 3)
				mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).
					WithArgs(5).
					WillReturnRows(sqlmock.NewRows([]string{"id", "role", "remaining_classes", "last_reset_month"}))
			},
			want: apperr.ErrInvalidMember,
		},
		{
			name: "user is an employee",
			expect: func(mock sqlmock.Sqlmock) {
				expectClassLock(mock, 7, 3)
				expectMemberLock(mock, 5, "employee", 0, nil)
			},
			want: apperr.ErrInvalidMember,
		},
		{
			name: "already enrolled",
			expect: func(mock sqlmock.Sqlmock) {
				expectClassLock(mock, 7, 3)
				expectMemberLock(mock, 5, "member", 4, sameMonth)
				expectNotEnrolled(mock, 5, 7, true)
			},
			want: apperr.ErrAlreadyEnrolled,
		},
		{
			name: "no seats",
			expect: func(mock sqlmock.Sqlmock) {
				expectClassLock(mock, 7, 0)
				expectMemberLock(mock, 5, "member", 0, sameMonth)
				expectNotEnrolled(mock, 5, 7, false)
			},
			want: apperr.ErrNoSeatsAvailable,
		},
		{
			name: "quota exhausted",
			expect: func(mock sqlmock.Sqlmock) {
				expectClassLock(mock, 7, 3)
				expectMemberLock(mock, 5, "member", 0, sameMonth)
				expectNotEnrolled(mock, 5, 7, false)
			},
			want: apperr.ErrQuotaExhausted,
		},
		{
			name: "lost the last seat",
			expect: func(mock sqlmock.Sqlmock) {
				expectClassLock(mock, 7, 1)
				expectMemberLock(mock, 5, "member", 4, sameMonth)
				expectNotEnrolled(mock, 5, 7, false)
				mock.ExpectQuery(`INSERT INTO enrollments`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "class_id", "payment_method", "registered_at"}).
						AddRow(14, 5, 7, "member", testNow))
				mock.ExpectExec(`UPDATE classes SET available_seats`).
					WithArgs(7).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: apperr.ErrNoSeatsAvailable,
		},
		{
			name: "racing duplicate insert",
			expect: func(mock sqlmock.Sqlmock) {
				expectClassLock(mock, 7, 3)
				expectMemberLock(mock, 5, "member", 4, sameMonth)
				expectNotEnrolled(mock, 5, 7, false)
				mock.ExpectQuery(`INSERT INTO enrollments`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "enrollments_member_class_unique"})
			},
			want: apperr.ErrAlreadyEnrolled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestRepo(t)

			mock.ExpectBegin()
			tt.expect(mock)
			mock.ExpectRollback()

			res, err := repo.EnrollMember(context.Background(), 5, 7, testNow)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_EnrollMember_AbortedTransactionIsRetryable(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		t.Run(code, func(t *testing.T) {
			repo, mock := newTestRepo(t)

			mock.ExpectBegin()
			mock.ExpectQuery(`FROM classes WHERE id = \$1 FOR UPDATE`).
				WithArgs(7).
				WillReturnError(&pgconn.PgError{Code: code})
			mock.ExpectRollback()

			res, err := repo.EnrollMember(context.Background(), 5, 7, testNow)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
			assert.True(t, apperr.Retryable(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_EnrollVisitor_Success(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	expectClassLock(mock, 7, 2)
	mock.ExpectQuery(`INSERT INTO visitor_enrollments`).
		WithArgs("Ana", "ana@example.com", 7, "transfer", "123456").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "class_id", "payment_method", "confirmation_code", "registered_at"}).
			AddRow(3, "Ana", "ana@example.com", 7, "transfer", "123456", testNow))
	mock.ExpectExec(`UPDATE classes SET available_seats = available_seats - 1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, class, err := repo.EnrollVisitor(context.Background(), &VisitorEnrollment{
		Name: "Ana", Email: "ana@example.com", ClassID: 7, PaymentMethod: PaymentTransfer, ConfirmationCode: "123456",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, v.ID)
	assert.Equal(t, "Spinning", class.Name)
	assert.Equal(t, 1, class.AvailableSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_EnrollVisitor_NoSeats(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	expectClassLock(mock, 7, 0)
	mock.ExpectRollback()

	v, class, err := repo.EnrollVisitor(context.Background(), &VisitorEnrollment{
		Name: "Ana", Email: "ana@example.com", ClassID: 7, PaymentMethod: PaymentVenue, ConfirmationCode: "123456",
	})

	assert.Nil(t, v)
	assert.Nil(t, class)
	assert.ErrorIs(t, err, apperr.ErrNoSeatsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_EnrollVisitor_ClassNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM classes WHERE id = \$1 FOR UPDATE`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_time", "available_seats"}))
	mock.ExpectRollback()

	_, _, err := repo.EnrollVisitor(context.Background(), &VisitorEnrollment{ClassID: 9})

	assert.ErrorIs(t, err, apperr.ErrClassNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_EnrollVisitor_InsertFailureRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	expectClassLock(mock, 7, 2)
	mock.ExpectQuery(`INSERT INTO visitor_enrollments`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, _, err := repo.EnrollVisitor(context.Background(), &VisitorEnrollment{ClassID: 7, PaymentMethod: PaymentVenue})

	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListAttendees(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`UNION ALL`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "enrollment_id", "name", "email", "payment_method", "registered_at"}).
			AddRow("member", 1, "Luis", "luis@example.com", "member", testNow).
			AddRow("visitor", 2, nil, "anon@example.com", "venue", testNow))

	attendees, err := repo.ListAttendees(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, attendees, 2)
	assert.Equal(t, AttendeeMember, attendees[0].Kind)
	assert.Nil(t, attendees[1].Name)
	assert.Equal(t, PaymentVenue, attendees[1].PaymentMethod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListMemberEnrollments(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`FROM enrollments e JOIN classes c ON c.id = e.class_id WHERE e.member_id = \$1 ORDER BY e.registered_at DESC`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "class_id", "payment_method", "registered_at", "class_name", "class_description", "class_start_time"}).
			AddRow(2, 5, 8, "member", testNow, "Yoga", "Hatha", classStart).
			AddRow(1, 5, 7, "member", testNow.Add(-time.Hour), "Spinning", "Indoor cycling", classStart))

	enrollments, err := repo.ListMemberEnrollments(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.Equal(t, "Yoga", enrollments[0].ClassName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_OccupancyByDay(t *testing.T) {
	repo, mock := newTestRepo(t)
	to := testNow.AddDate(0, 0, 7)

	mock.ExpectQuery(`WITH all_enrollments AS`).
		WithArgs(testNow, to).
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "member_enrollments", "visitor_enrollments"}).
			AddRow("2025-03-03", 4, 1).
			AddRow("2025-03-04", 2, 0))

	stats, err := repo.OccupancyByDay(context.Background(), testNow, to)

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, OccupancyByDay{Bucket: "2025-03-03", MemberEnrollments: 4, VisitorEnrollments: 1}, stats[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_OccupancyByClass(t *testing.T) {
	repo, mock := newTestRepo(t)
	to := testNow.AddDate(0, 0, 7)

	mock.ExpectQuery(`FROM classes c WHERE c.start_time >= \$1 AND c.start_time < \$2`).
		WithArgs(testNow, to).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "class_name", "start_time", "max_capacity", "available_seats", "member_enrollments", "visitor_enrollments"}).
			AddRow(7, "Spinning", classStart, 10, 5, 3, 2))

	stats, err := repo.OccupancyByClass(context.Background(), testNow, to)

	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].MemberEnrollments)
	assert.Equal(t, 2, stats[0].VisitorEnrollments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
