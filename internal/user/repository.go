package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/auth"
	"github.com/Gio21sr/oberfit/internal/config"
	"github.com/Gio21sr/oberfit/internal/db"
)

const (
	constraintName  = "users_name_unique"
	constraintEmail = "users_email_unique"
)

const userColumns = `id, name, full_name, email, password_hash, role, remaining_classes, last_reset_month, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func mapWriteError(op string, err error) error {
	if name, ok := db.UniqueViolation(err); ok {
		switch name {
		case constraintName:
			return apperr.Newf(apperr.KindNameTaken, op, "username already exists")
		case constraintEmail:
			return apperr.Newf(apperr.KindNameTaken, op, "email already exists")
		}
		return apperr.Wrap(apperr.KindNameTaken, op, err)
	}
	if _, ok := db.CheckViolation(err); ok {
		return apperr.Wrap(apperr.KindValidation, op, err)
	}
	if db.ForeignKeyViolation(err) {
		return apperr.Wrap(apperr.KindConflictOnDelete, op, err)
	}
	return apperr.Storage(op, err)
}

func (r *repository) Create(ctx context.Context, u *User) (*User, error) {
	const op = "user.Create"

	query := `
		INSERT INTO users (name, full_name, email, password_hash, role, remaining_classes, last_reset_month)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	var created User
	err := r.db.GetContext(ctx, &created, query,
		u.Name, u.FullName, u.Email, u.PasswordHash, u.Role, u.RemainingClasses, u.LastResetMonth)
	if err != nil {
		return nil, mapWriteError(op, err)
	}

	return &created, nil
}

func (r *repository) findOne(ctx context.Context, op, where string, arg interface{}) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindMemberNotFound, op)
	}
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	return &u, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "user.FindByEmail", `email = $1`, email)
}

func (r *repository) FindByID(ctx context.Context, id int) (*User, error) {
	return r.findOne(ctx, "user.FindByID", `id = $1`, id)
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	exists, err := db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
	if err != nil {
		return false, apperr.Storage("user.EmailExists", err)
	}
	return exists, nil
}

func (r *repository) NameExists(ctx context.Context, name string) (bool, error) {
	exists, err := db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM users WHERE name = $1)`, name)
	if err != nil {
		return false, apperr.Storage("user.NameExists", err)
	}
	return exists, nil
}

func (r *repository) ListByRole(ctx context.Context, role auth.Role) ([]User, error) {
	const op = "user.ListByRole"

	users := []User{}
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id ASC`, role)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	return users, nil
}

// Delete removes a user. Class rows are locked before the user row, the
// same order the enrollment transactions use. Under the cascade policy
// every class the member was booked into gets its seat back.
func (r *repository) Delete(ctx context.Context, id int, policy config.DeletePolicy) (*DeleteResult, error) {
	const op = "user.Delete"

	var result DeleteResult
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var classIDs []int
		err := tx.SelectContext(ctx, &classIDs, `
			SELECT id FROM classes
			WHERE id IN (SELECT class_id FROM enrollments WHERE member_id = $1)
			ORDER BY id
			FOR UPDATE`, id)
		if err != nil {
			return err
		}

		var role auth.Role
		err = tx.GetContext(ctx, &role, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindMemberNotFound, op)
		}
		if err != nil {
			return err
		}
		if role == auth.RoleAdmin {
			return apperr.Newf(apperr.KindForbidden, op, "admin accounts cannot be deleted")
		}

		if len(classIDs) > 0 {
			if policy == config.DeleteBlock {
				return apperr.Newf(apperr.KindConflictOnDelete, op, "user has %d enrollments", len(classIDs))
			}

			_, err = tx.ExecContext(ctx, `
				UPDATE classes
				SET available_seats = LEAST(available_seats + 1, max_capacity)
				WHERE id IN (SELECT class_id FROM enrollments WHERE member_id = $1)`, id)
			if err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE member_id = $1`, id)
			if err != nil {
				return err
			}
			result.Enrollments, _ = res.RowsAffected()
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, mapWriteError(op, err)
	}

	return &result, nil
}
