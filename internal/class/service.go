package class

import (
	"context"
	"strings"
	"time"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/config"
	"github.com/Gio21sr/oberfit/internal/logger"
	"github.com/Gio21sr/oberfit/internal/metrics"
	"github.com/Gio21sr/oberfit/internal/schedule"
	"github.com/Gio21sr/oberfit/internal/validation"
)

type Service interface {
	CreateClass(ctx context.Context, req CreateClassRequest, now time.Time) (*Class, error)
	UpdateClass(ctx context.Context, id int, req UpdateClassRequest, now time.Time) (*Class, error)
	DeleteClass(ctx context.Context, id int, now time.Time) (*DeleteResult, error)
	GetClass(ctx context.Context, id int) (*Class, error)
	ListClasses(ctx context.Context) ([]Class, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]Class, error)
}

type service struct {
	repo   Repository
	policy config.DeletePolicy
}

func NewService(repo Repository, policy config.DeletePolicy) Service {
	if !policy.Valid() {
		policy = config.DeleteCascade
	}
	return &service{
		repo:   repo,
		policy: policy,
	}
}

func record(operation string, err error) {
	if err != nil {
		metrics.RecordClassOperation(operation, apperr.KindOf(err).String())
		return
	}
	metrics.RecordClassOperation(operation, "success")
}

func (s *service) CreateClass(ctx context.Context, req CreateClassRequest, now time.Time) (c *Class, err error) {
	const op = "class.CreateClass"
	defer func() { record("create", err) }()

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.Struct(op, req); err != nil {
		return nil, err
	}

	startTime, err := schedule.ParseStartTime(req.StartTime)
	if err != nil {
		return nil, err
	}
	if err := schedule.Validate(startTime, now); err != nil {
		return nil, err
	}

	taken, err := s.repo.SlotTaken(ctx, startTime, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.New(apperr.KindDuplicateClassSlot, op)
	}

	c, err = s.repo.Create(ctx, &Class{
		Name:        req.Name,
		Description: req.Description,
		StartTime:   startTime,
		MaxCapacity: req.MaxCapacity,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("class created", "class_id", c.ID, "start_time", c.StartTime, "max_capacity", c.MaxCapacity)
	return c, nil
}

func (s *service) UpdateClass(ctx context.Context, id int, req UpdateClassRequest, now time.Time) (c *Class, err error) {
	const op = "class.UpdateClass"
	defer func() { record("update", err) }()

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.Struct(op, req); err != nil {
		return nil, err
	}
	seats := *req.AvailableSeats
	if seats > req.MaxCapacity {
		return nil, apperr.New(apperr.KindCapacityExceeded, op)
	}

	startTime, err := schedule.ParseStartTime(req.StartTime)
	if err != nil {
		return nil, err
	}
	if err := schedule.Validate(startTime, now); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	taken, err := s.repo.SlotTaken(ctx, startTime, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.New(apperr.KindDuplicateClassSlot, op)
	}

	c, err = s.repo.Update(ctx, &Class{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		StartTime:      startTime,
		AvailableSeats: seats,
		MaxCapacity:    req.MaxCapacity,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("class updated", "class_id", c.ID)
	return c, nil
}

func (s *service) DeleteClass(ctx context.Context, id int, now time.Time) (res *DeleteResult, err error) {
	defer func() { record("delete", err) }()

	res, err = s.repo.Delete(ctx, id, s.policy, now)
	if err != nil {
		return nil, err
	}

	logger.Info("class deleted",
		"class_id", id,
		"policy", string(s.policy),
		"enrollments", res.Enrollments,
		"visitor_enrollments", res.VisitorEnrollments,
	)
	return res, nil
}

func (s *service) GetClass(ctx context.Context, id int) (*Class, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListClasses(ctx context.Context) ([]Class, error) {
	return s.repo.List(ctx)
}

func (s *service) ListUpcoming(ctx context.Context, now time.Time) ([]Class, error) {
	return s.repo.ListUpcoming(ctx, now)
}
