package class

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/config"
	"github.com/Gio21sr/oberfit/internal/db"
)

const (
	constraintStartTime = "classes_start_time_unique"
	constraintName      = "classes_name_unique"
	constraintSeats     = "classes_available_seats_check"
)

const classColumns = `id, name, description, start_time, available_seats, max_capacity, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// mapWriteError turns constraint violations into their business kinds.
func mapWriteError(op string, err error) error {
	if name, ok := db.UniqueViolation(err); ok {
		switch name {
		case constraintStartTime:
			return apperr.Wrap(apperr.KindDuplicateClassSlot, op, err)
		case constraintName:
			return apperr.Wrap(apperr.KindNameTaken, op, err)
		}
	}
	if name, ok := db.CheckViolation(err); ok {
		if name == constraintSeats {
			return apperr.Wrap(apperr.KindCapacityExceeded, op, err)
		}
		return apperr.Wrap(apperr.KindValidation, op, err)
	}
	if db.ForeignKeyViolation(err) {
		return apperr.Wrap(apperr.KindConflictOnDelete, op, err)
	}
	return apperr.Storage(op, err)
}

func (r *repository) Create(ctx context.Context, c *Class) (*Class, error) {
	const op = "class.Create"

	query := `
		INSERT INTO classes (name, description, start_time, available_seats, max_capacity)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + classColumns

	var created Class
	err := r.db.GetContext(ctx, &created, query, c.Name, c.Description, c.StartTime, c.MaxCapacity)
	if err != nil {
		return nil, mapWriteError(op, err)
	}

	return &created, nil
}

func (r *repository) Update(ctx context.Context, c *Class) (*Class, error) {
	const op = "class.Update"

	query := `
		UPDATE classes
		SET name = $1, description = $2, start_time = $3, available_seats = $4, max_capacity = $5
		WHERE id = $6
		RETURNING ` + classColumns

	var updated Class
	err := r.db.GetContext(ctx, &updated, query,
		c.Name, c.Description, c.StartTime, c.AvailableSeats, c.MaxCapacity, c.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindClassNotFound, op)
	}
	if err != nil {
		return nil, mapWriteError(op, err)
	}

	return &updated, nil
}

// Delete removes the class and every enrollment pointing at it in one
// transaction. Under the block policy a class that has not started yet and
// still has enrollments is left alone.
func (r *repository) Delete(ctx context.Context, id int, policy config.DeletePolicy, now time.Time) (*DeleteResult, error) {
	const op = "class.Delete"

	var result DeleteResult
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var startTime time.Time
		err := tx.GetContext(ctx, &startTime, `SELECT start_time FROM classes WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindClassNotFound, op)
		}
		if err != nil {
			return err
		}

		if policy == config.DeleteBlock && startTime.After(now) {
			var enrolled int
			err := tx.GetContext(ctx, &enrolled, `
				SELECT (SELECT COUNT(*) FROM enrollments WHERE class_id = $1)
				     + (SELECT COUNT(*) FROM visitor_enrollments WHERE class_id = $1)`, id)
			if err != nil {
				return err
			}
			if enrolled > 0 {
				return apperr.Newf(apperr.KindConflictOnDelete, op, "class has %d enrollments", enrolled)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE class_id = $1`, id)
		if err != nil {
			return err
		}
		result.Enrollments, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM visitor_enrollments WHERE class_id = $1`, id)
		if err != nil {
			return err
		}
		result.VisitorEnrollments, _ = res.RowsAffected()

		_, err = tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, mapWriteError(op, err)
	}

	return &result, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Class, error) {
	const op = "class.GetByID"

	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`

	var c Class
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindClassNotFound, op)
	}
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	return &c, nil
}

func (r *repository) List(ctx context.Context) ([]Class, error) {
	const op = "class.List"

	query := `SELECT ` + classColumns + ` FROM classes ORDER BY start_time ASC, id ASC`

	classes := []Class{}
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, apperr.Storage(op, err)
	}

	return classes, nil
}

func (r *repository) ListUpcoming(ctx context.Context, now time.Time) ([]Class, error) {
	const op = "class.ListUpcoming"

	query := `SELECT ` + classColumns + ` FROM classes WHERE start_time >= $1 ORDER BY start_time ASC, id ASC`

	classes := []Class{}
	if err := r.db.SelectContext(ctx, &classes, query, now); err != nil {
		return nil, apperr.Storage(op, err)
	}

	return classes, nil
}

// SlotTaken reports whether a class other than excludeID starts exactly at
// startTime. Pass 0 to check against every class.
func (r *repository) SlotTaken(ctx context.Context, startTime time.Time, excludeID int) (bool, error) {
	const op = "class.SlotTaken"

	taken, err := db.Exists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM classes WHERE start_time = $1 AND id <> $2)`, startTime, excludeID)
	if err != nil {
		return false, apperr.Storage(op, err)
	}

	return taken, nil
}
