package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/db"
)

const (
	constraintMemberClass = "enrollments_member_class_unique"
	constraintSeats       = "classes_available_seats_check"
	constraintQuota       = "users_remaining_classes_check"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func mapWriteError(op string, err error) error {
	if name, ok := db.UniqueViolation(err); ok && name == constraintMemberClass {
		return apperr.Wrap(apperr.KindAlreadyEnrolled, op, err)
	}
	if name, ok := db.CheckViolation(err); ok {
		switch name {
		case constraintSeats:
			return apperr.Wrap(apperr.KindNoSeatsAvailable, op, err)
		case constraintQuota:
			return apperr.Wrap(apperr.KindQuotaExhausted, op, err)
		}
		return apperr.Wrap(apperr.KindValidation, op, err)
	}
	return apperr.Storage(op, err)
}

// lockClass takes the class row lock. Every transaction that also locks a
// user row takes this one first.
func lockClass(ctx context.Context, tx *sqlx.Tx, op string, classID int) (*ClassSlot, error) {
	var c ClassSlot
	err := tx.GetContext(ctx, &c, `
		SELECT id, name, start_time, available_seats
		FROM classes
		WHERE id = $1
		FOR UPDATE`, classID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindClassNotFound, op)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// takeSeat decrements the seat counter, refusing to go below zero.
func takeSeat(ctx context.Context, tx *sqlx.Tx, op string, classID int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE classes
		SET available_seats = available_seats - 1
		WHERE id = $1 AND available_seats > 0`, classID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.KindNoSeatsAvailable, op)
	}
	return nil
}

// EnrollMember runs the member booking as one transaction. The checks run
// in a fixed order and the first failure aborts with nothing written.
func (r *repository) EnrollMember(ctx context.Context, memberID, classID int, now time.Time) (*MemberEnrollmentResult, error) {
	const op = "enrollment.EnrollMember"

	var result MemberEnrollmentResult
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		class, err := lockClass(ctx, tx, op, classID)
		if err != nil {
			return err
		}

		var member MemberQuota
		err = tx.GetContext(ctx, &member, `
			SELECT id, role, COALESCE(remaining_classes, 0) AS remaining_classes, last_reset_month
			FROM users
			WHERE id = $1
			FOR UPDATE`, memberID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindInvalidMember, op)
		}
		if err != nil {
			return err
		}
		if member.Role != "member" {
			return apperr.Newf(apperr.KindInvalidMember, op, "user %d is not a member", memberID)
		}

		enrolled, err := db.Exists(ctx, tx, `
			SELECT EXISTS(SELECT 1 FROM enrollments WHERE member_id = $1 AND class_id = $2)`, memberID, classID)
		if err != nil {
			return err
		}
		if enrolled {
			return apperr.New(apperr.KindAlreadyEnrolled, op)
		}

		quota, refilled := EffectiveQuota(member.RemainingClasses, member.LastResetMonth, now)

		if class.AvailableSeats <= 0 {
			return apperr.New(apperr.KindNoSeatsAvailable, op)
		}
		if quota <= 0 {
			return apperr.New(apperr.KindQuotaExhausted, op)
		}

		err = tx.GetContext(ctx, &result.Enrollment, `
			INSERT INTO enrollments (member_id, class_id, payment_method, registered_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, member_id, class_id, payment_method, registered_at`,
			memberID, classID, PaymentMember, now)
		if err != nil {
			return err
		}

		if err := takeSeat(ctx, tx, op, classID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET remaining_classes = $1, last_reset_month = $2
			WHERE id = $3`, quota-1, now, memberID)
		if err != nil {
			return err
		}

		result.RemainingClasses = quota - 1
		result.QuotaRefilled = refilled
		return nil
	})
	if err != nil {
		return nil, mapWriteError(op, err)
	}

	return &result, nil
}

func (r *repository) EnrollVisitor(ctx context.Context, v *VisitorEnrollment) (*VisitorEnrollment, *ClassSlot, error) {
	const op = "enrollment.EnrollVisitor"

	var (
		created VisitorEnrollment
		class   *ClassSlot
	)
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		class, err = lockClass(ctx, tx, op, v.ClassID)
		if err != nil {
			return err
		}
		if class.AvailableSeats <= 0 {
			return apperr.New(apperr.KindNoSeatsAvailable, op)
		}

		err = tx.GetContext(ctx, &created, `
			INSERT INTO visitor_enrollments (name, email, class_id, payment_method, confirmation_code)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, name, email, class_id, payment_method, confirmation_code, registered_at`,
			v.Name, v.Email, v.ClassID, v.PaymentMethod, v.ConfirmationCode)
		if err != nil {
			return err
		}

		return takeSeat(ctx, tx, op, v.ClassID)
	})
	if err != nil {
		return nil, nil, mapWriteError(op, err)
	}

	class.AvailableSeats--
	return &created, class, nil
}

// ListAttendees returns member and visitor enrollees of a class, unsorted.
func (r *repository) ListAttendees(ctx context.Context, classID int) ([]Attendee, error) {
	const op = "enrollment.ListAttendees"

	query := `
		SELECT 'member' AS kind, e.id AS enrollment_id, u.name, u.email, e.payment_method, e.registered_at
		FROM enrollments e
		JOIN users u ON u.id = e.member_id
		WHERE e.class_id = $1
		UNION ALL
		SELECT 'visitor' AS kind, v.id AS enrollment_id, v.name, v.email, v.payment_method, v.registered_at
		FROM visitor_enrollments v
		WHERE v.class_id = $1
	`

	attendees := []Attendee{}
	if err := r.db.SelectContext(ctx, &attendees, query, classID); err != nil {
		return nil, apperr.Storage(op, err)
	}

	return attendees, nil
}

func (r *repository) ListMemberEnrollments(ctx context.Context, memberID int) ([]EnrollmentWithClass, error) {
	const op = "enrollment.ListMemberEnrollments"

	query := `
		SELECT
			e.id,
			e.member_id,
			e.class_id,
			e.payment_method,
			e.registered_at,
			c.name AS class_name,
			c.description AS class_description,
			c.start_time AS class_start_time
		FROM enrollments e
		JOIN classes c ON c.id = e.class_id
		WHERE e.member_id = $1
		ORDER BY e.registered_at DESC, e.id DESC
	`

	enrollments := []EnrollmentWithClass{}
	if err := r.db.SelectContext(ctx, &enrollments, query, memberID); err != nil {
		return nil, apperr.Storage(op, err)
	}

	return enrollments, nil
}
