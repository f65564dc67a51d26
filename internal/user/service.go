package user

import (
	"context"
	"strings"
	"time"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/auth"
	"github.com/Gio21sr/oberfit/internal/config"
	"github.com/Gio21sr/oberfit/internal/enrollment"
	"github.com/Gio21sr/oberfit/internal/logger"
	"github.com/Gio21sr/oberfit/internal/validation"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	CreateByAdmin(ctx context.Context, caller auth.Identity, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
	GetProfile(ctx context.Context, userID int, now time.Time) (*Profile, error)
	ListByRole(ctx context.Context, caller auth.Identity) (*UsersByRole, error)
	Delete(ctx context.Context, caller auth.Identity, userID int) (*DeleteResult, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type service struct {
	repo          Repository
	accessSecret  string
	refreshSecret string
	policy        config.DeletePolicy
	now           func() time.Time
}

func NewService(repo Repository, accessSecret, refreshSecret string, policy config.DeletePolicy) Service {
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	if !policy.Valid() {
		policy = config.DeleteCascade
	}
	return &service{
		repo:          repo,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		policy:        policy,
		now:           time.Now,
	}
}

// checkFree reports NameTaken for the first of username or email already
// in use. The unique constraints still back this up on insert.
func (s *service) checkFree(ctx context.Context, op, name, email string) error {
	taken, err := s.repo.NameExists(ctx, name)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Newf(apperr.KindNameTaken, op, "username already exists")
	}

	taken, err = s.repo.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Newf(apperr.KindNameTaken, op, "email already exists")
	}
	return nil
}

func (s *service) issueTokens(op string, u *User) (string, string, error) {
	access, refresh, err := auth.IssueTokenPair(u.Identity(), s.accessSecret, s.refreshSecret)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, op, err)
	}
	return access, refresh, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	const op = "user.Register"

	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(op, req); err != nil {
		return nil, "", "", err
	}

	if err := s.checkFree(ctx, op, req.Username, req.Email); err != nil {
		return nil, "", "", err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", apperr.Wrap(apperr.KindInternal, op, err)
	}

	quota := enrollment.MonthlyAllowance
	now := s.now()
	u, err := s.repo.Create(ctx, &User{
		Name:             req.Username,
		FullName:         &req.FullName,
		Email:            req.Email,
		PasswordHash:     passwordHash,
		Role:             auth.RoleMember,
		RemainingClasses: &quota,
		LastResetMonth:   &now,
	})
	if err != nil {
		return nil, "", "", err
	}

	access, refresh, err := s.issueTokens(op, u)
	if err != nil {
		return nil, "", "", err
	}

	logger.Info("member registered", "user_id", u.ID)
	return u, access, refresh, nil
}

func (s *service) CreateByAdmin(ctx context.Context, caller auth.Identity, req CreateUserRequest) (*User, error) {
	const op = "user.CreateByAdmin"

	if caller.Role != auth.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, op)
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(op, req); err != nil {
		return nil, err
	}

	if err := s.checkFree(ctx, op, req.Username, req.Email); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	u := &User{
		Name:         req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
	}
	if req.Role == auth.RoleMember {
		quota := enrollment.MonthlyAllowance
		now := s.now()
		u.RemainingClasses = &quota
		u.LastResetMonth = &now
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	logger.Info("user created by admin",
		"user_id", created.ID,
		"role", string(created.Role),
		"admin_id", caller.UserID,
	)
	return created, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	const op = "user.Login"

	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindMemberNotFound {
			return nil, "", "", apperr.New(apperr.KindInvalidCredentials, op)
		}
		return nil, "", "", err
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, "", "", apperr.New(apperr.KindInvalidCredentials, op)
	}

	access, refresh, err := s.issueTokens(op, u)
	if err != nil {
		return nil, "", "", err
	}

	return u, access, refresh, nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	const op = "user.RefreshToken"

	holder, err := auth.ParseRefreshToken(refreshToken, s.refreshSecret)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindInvalidCredentials, op, err)
	}

	u, err := s.repo.FindByID(ctx, holder.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindMemberNotFound {
			return "", nil, apperr.New(apperr.KindInvalidCredentials, op)
		}
		return "", nil, err
	}

	// Role may have changed since the refresh token was issued.
	access, err := auth.IssueAccessToken(u.Identity(), s.accessSecret)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	return access, u, nil
}

func (s *service) GetProfile(ctx context.Context, userID int, now time.Time) (*Profile, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{User: *u}
	if u.Role == auth.RoleMember {
		remaining := 0
		if u.RemainingClasses != nil {
			remaining = *u.RemainingClasses
		}
		effective, _ := enrollment.EffectiveQuota(remaining, u.LastResetMonth, now)
		p.EffectiveRemainingClasses = &effective
	}
	return p, nil
}

func (s *service) ListByRole(ctx context.Context, caller auth.Identity) (*UsersByRole, error) {
	const op = "user.ListByRole"

	if caller.Role != auth.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, op)
	}

	employees, err := s.repo.ListByRole(ctx, auth.RoleEmployee)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListByRole(ctx, auth.RoleMember)
	if err != nil {
		return nil, err
	}

	return &UsersByRole{Employees: employees, Members: members}, nil
}

func (s *service) Delete(ctx context.Context, caller auth.Identity, userID int) (*DeleteResult, error) {
	const op = "user.Delete"

	if caller.Role != auth.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, op)
	}

	res, err := s.repo.Delete(ctx, userID, s.policy)
	if err != nil {
		return nil, err
	}

	logger.Info("user deleted",
		"user_id", userID,
		"enrollments_removed", res.Enrollments,
		"policy", string(s.policy),
	)
	return res, nil
}

// EnsureAdmin creates the bootstrap admin account when no user holds the
// email yet. An empty email disables it.
func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	const op = "user.EnsureAdmin"

	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if password == "" {
		return apperr.Newf(apperr.KindValidation, op, "admin password is required")
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != auth.RoleAdmin {
			logger.Warn("bootstrap admin email belongs to a non-admin user", "user_id", existing.ID)
		}
		return nil
	}
	if apperr.KindOf(err) != apperr.KindMemberNotFound {
		return err
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, op, err)
	}

	name := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		name = email[:i]
	}

	u, err := s.repo.Create(ctx, &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         auth.RoleAdmin,
	})
	if err != nil {
		return err
	}

	logger.Info("bootstrap admin created", "user_id", u.ID)
	return nil
}
