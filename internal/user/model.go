package user

import (
	"time"

	"github.com/Gio21sr/oberfit/internal/auth"
)

type User struct {
	ID               int        `db:"id" json:"id"`
	Name             string     `db:"name" json:"username"`
	FullName         *string    `db:"full_name" json:"full_name,omitempty"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             auth.Role  `db:"role" json:"role"`
	RemainingClasses *int       `db:"remaining_classes" json:"remaining_classes,omitempty"`
	LastResetMonth   *time.Time `db:"last_reset_month" json:"last_reset_month,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

func (u *User) Identity() auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role}
}

// Profile is a user as shown to themselves. For members the effective
// quota already accounts for a pending monthly refill.
type Profile struct {
	User
	EffectiveRemainingClasses *int `json:"effective_remaining_classes,omitempty"`
}

type RegisterRequest struct {
	Username        string `json:"username" binding:"required" validate:"required,max=100"`
	FullName        string `json:"full_name" binding:"required" validate:"required,max=200"`
	Email           string `json:"email" binding:"required" validate:"required,email"`
	Password        string `json:"password" binding:"required" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required" validate:"required,eqfield=Password"`
}

type CreateUserRequest struct {
	Username        string    `json:"username" binding:"required" validate:"required,max=100"`
	Email           string    `json:"email" binding:"required" validate:"required,email"`
	Password        string    `json:"password" binding:"required" validate:"required,min=6"`
	ConfirmPassword string    `json:"confirm_password" binding:"required" validate:"required,eqfield=Password"`
	Role            auth.Role `json:"role" binding:"required" validate:"required,oneof=employee member"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type UsersByRole struct {
	Employees []User `json:"employees"`
	Members   []User `json:"members"`
}

type DeleteResult struct {
	Enrollments int64 `json:"enrollments"`
}
