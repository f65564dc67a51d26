package enrollment

import (
	"context"
	"time"
)

type Repository interface {
	EnrollMember(ctx context.Context, memberID, classID int, now time.Time) (*MemberEnrollmentResult, error)
	EnrollVisitor(ctx context.Context, v *VisitorEnrollment) (*VisitorEnrollment, *ClassSlot, error)
	ListAttendees(ctx context.Context, classID int) ([]Attendee, error)
	ListMemberEnrollments(ctx context.Context, memberID int) ([]EnrollmentWithClass, error)
	OccupancyByDay(ctx context.Context, from, to time.Time) ([]OccupancyByDay, error)
	OccupancyByClass(ctx context.Context, from, to time.Time) ([]OccupancyByClass, error)
}
