package enrollment

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/auth"
	"github.com/Gio21sr/oberfit/internal/logger"
	"github.com/Gio21sr/oberfit/internal/metrics"
	"github.com/Gio21sr/oberfit/internal/validation"
)

type Service interface {
	EnrollMember(ctx context.Context, caller auth.Identity, memberID, classID int, now time.Time) (*MemberEnrollmentResult, error)
	EnrollVisitor(ctx context.Context, req EnrollVisitorRequest) (*VisitorConfirmation, error)
	ListAttendees(ctx context.Context, caller auth.Identity, classID int) ([]Attendee, error)
	ListMemberEnrollments(ctx context.Context, caller auth.Identity, memberID int) ([]EnrollmentWithClass, error)
	Occupancy(ctx context.Context, from, to time.Time) (*OccupancyReport, error)
}

type service struct {
	repo    Repository
	newCode func() string
}

func NewService(repo Repository) Service {
	return &service{
		repo:    repo,
		newCode: confirmationCode,
	}
}

// confirmationCode returns a random six digit code. Codes are shown to
// the visitor and are not unique.
func confirmationCode() string {
	return fmt.Sprintf("%06d", rand.Intn(900000)+100000)
}

func outcome(err error) string {
	if err != nil {
		return apperr.KindOf(err).String()
	}
	return "success"
}

func (s *service) EnrollMember(ctx context.Context, caller auth.Identity, memberID, classID int, now time.Time) (res *MemberEnrollmentResult, err error) {
	const op = "enrollment.EnrollMember"
	defer func() { metrics.RecordEnrollment(string(AttendeeMember), outcome(err)) }()

	if !caller.CanActFor(memberID) {
		return nil, apperr.New(apperr.KindForbidden, op)
	}

	res, err = s.repo.EnrollMember(ctx, memberID, classID, now)
	if err != nil {
		logger.Debug("member enrollment rejected",
			"member_id", memberID,
			"class_id", classID,
			"kind", apperr.KindOf(err).String(),
		)
		return nil, err
	}

	if res.QuotaRefilled {
		metrics.RecordQuotaRefill()
	}
	logger.Info("member enrolled",
		"member_id", memberID,
		"class_id", classID,
		"enrollment_id", res.Enrollment.ID,
		"remaining_classes", res.RemainingClasses,
	)
	return res, nil
}

func (s *service) EnrollVisitor(ctx context.Context, req EnrollVisitorRequest) (conf *VisitorConfirmation, err error) {
	const op = "enrollment.EnrollVisitor"
	defer func() { metrics.RecordEnrollment(string(AttendeeVisitor), outcome(err)) }()

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(op, req); err != nil {
		return nil, err
	}

	method, ok := ParseVisitorPayment(req.PaymentMethod)
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, op, "payment_method %q is not supported", req.PaymentMethod)
	}

	v, class, err := s.repo.EnrollVisitor(ctx, &VisitorEnrollment{
		Name:             req.Name,
		Email:            req.Email,
		ClassID:          req.ClassID,
		PaymentMethod:    method,
		ConfirmationCode: s.newCode(),
	})
	if err != nil {
		return nil, err
	}

	conf = &VisitorConfirmation{
		ID:                 v.ID,
		Name:               v.Name,
		Email:              v.Email,
		ClassName:          class.Name,
		ClassStartTime:     class.StartTime,
		ConfirmationCode:   v.ConfirmationCode,
		PaymentMethodLabel: method.Label(),
	}
	if method == PaymentTransfer {
		details := transferDetails
		conf.BankDetails = &details
	}

	logger.Info("visitor enrolled",
		"visitor_enrollment_id", v.ID,
		"class_id", v.ClassID,
		"payment_method", string(method),
	)
	return conf, nil
}

func (s *service) ListAttendees(ctx context.Context, caller auth.Identity, classID int) ([]Attendee, error) {
	const op = "enrollment.ListAttendees"

	if !caller.IsStaff() {
		return nil, apperr.New(apperr.KindForbidden, op)
	}

	attendees, err := s.repo.ListAttendees(ctx, classID)
	if err != nil {
		return nil, err
	}

	SortAttendees(attendees)
	return attendees, nil
}

// SortAttendees orders attendees by name with a root-locale collator.
// Missing names sort as the empty string. Ties keep a fixed order by kind
// and enrollment id so repeated listings are identical.
func SortAttendees(attendees []Attendee) {
	col := collate.New(language.Und)
	sort.SliceStable(attendees, func(i, j int) bool {
		if c := col.CompareString(attendees[i].sortName(), attendees[j].sortName()); c != 0 {
			return c < 0
		}
		if attendees[i].Kind != attendees[j].Kind {
			return attendees[i].Kind < attendees[j].Kind
		}
		return attendees[i].EnrollmentID < attendees[j].EnrollmentID
	})
}

func (s *service) ListMemberEnrollments(ctx context.Context, caller auth.Identity, memberID int) ([]EnrollmentWithClass, error) {
	const op = "enrollment.ListMemberEnrollments"

	if !caller.CanActFor(memberID) {
		return nil, apperr.New(apperr.KindForbidden, op)
	}

	return s.repo.ListMemberEnrollments(ctx, memberID)
}

func (s *service) Occupancy(ctx context.Context, from, to time.Time) (*OccupancyReport, error) {
	const op = "enrollment.Occupancy"

	if !to.After(from) {
		return nil, apperr.Newf(apperr.KindValidation, op, "to must be after from")
	}

	byDay, err := s.repo.OccupancyByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byClass, err := s.repo.OccupancyByClass(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &OccupancyReport{
		From:    from,
		To:      to,
		ByDay:   byDay,
		ByClass: byClass,
	}, nil
}
