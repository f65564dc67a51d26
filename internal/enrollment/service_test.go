package enrollment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/auth"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) EnrollMember(ctx context.Context, memberID, classID int, now time.Time) (*MemberEnrollmentResult, error) {
	args := m.Called(ctx, memberID, classID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MemberEnrollmentResult), args.Error(1)
}

func (m *MockRepository) EnrollVisitor(ctx context.Context, v *VisitorEnrollment) (*VisitorEnrollment, *ClassSlot, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*VisitorEnrollment), args.Get(1).(*ClassSlot), args.Error(2)
}

func (m *MockRepository) ListAttendees(ctx context.Context, classID int) ([]Attendee, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Attendee), args.Error(1)
}

func (m *MockRepository) ListMemberEnrollments(ctx context.Context, memberID int) ([]EnrollmentWithClass, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]EnrollmentWithClass), args.Error(1)
}

func (m *MockRepository) OccupancyByDay(ctx context.Context, from, to time.Time) ([]OccupancyByDay, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]OccupancyByDay), args.Error(1)
}

func (m *MockRepository) OccupancyByClass(ctx context.Context, from, to time.Time) ([]OccupancyByClass, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]OccupancyByClass), args.Error(1)
}

var (
	member5  = auth.Identity{UserID: 5, Role: auth.RoleMember}
	employee = auth.Identity{UserID: 2, Role: auth.RoleEmployee}
)

func newTestService(repo Repository) *service {
	svc := NewService(repo).(*service)
	svc.newCode = func() string { return "482915" }
	return svc
}

func TestService_EnrollMember(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("EnrollMember", mock.Anything, 5, 7, testNow).Return(&MemberEnrollmentResult{
		Enrollment:       Enrollment{ID: 1, MemberID: 5, ClassID: 7, PaymentMethod: PaymentMember, RegisteredAt: testNow},
		RemainingClasses: 7,
		QuotaRefilled:    true,
	}, nil)

	res, err := svc.EnrollMember(context.Background(), member5, 5, 7, testNow)

	require.NoError(t, err)
	assert.Equal(t, 7, res.RemainingClasses)
	repo.AssertExpectations(t)
}

func TestService_EnrollMember_StaffOnBehalf(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("EnrollMember", mock.Anything, 5, 7, testNow).
		Return(&MemberEnrollmentResult{Enrollment: Enrollment{ID: 2}}, nil)

	_, err := svc.EnrollMember(context.Background(), employee, 5, 7, testNow)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_EnrollMember_OtherMemberForbidden(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	_, err := svc.EnrollMember(context.Background(), member5, 6, 7, testNow)

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	repo.AssertNotCalled(t, "EnrollMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_EnrollMember_PassesRepositoryError(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("EnrollMember", mock.Anything, 5, 7, testNow).
		Return(nil, apperr.New(apperr.KindQuotaExhausted, "enrollment.EnrollMember"))

	res, err := svc.EnrollMember(context.Background(), member5, 5, 7, testNow)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrQuotaExhausted)
}

func TestService_EnrollVisitor_Transfer(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	expected := &VisitorEnrollment{
		Name: "Ana López", Email: "ana@example.com", ClassID: 7,
		PaymentMethod: PaymentTransfer, ConfirmationCode: "482915",
	}
	repo.On("EnrollVisitor", mock.Anything, expected).Return(
		&VisitorEnrollment{ID: 9, Name: "Ana López", Email: "ana@example.com", ClassID: 7, PaymentMethod: PaymentTransfer, ConfirmationCode: "482915"},
		&ClassSlot{ID: 7, Name: "Spinning", StartTime: classStart, AvailableSeats: 4},
		nil,
	)

	conf, err := svc.EnrollVisitor(context.Background(), EnrollVisitorRequest{
		Name: "  Ana López ", Email: " ana@example.com", ClassID: 7, PaymentMethod: "Transferencia",
	})

	require.NoError(t, err)
	assert.Equal(t, "482915", conf.ConfirmationCode)
	assert.Equal(t, "Transferencia Bancaria", conf.PaymentMethodLabel)
	assert.Equal(t, "Spinning", conf.ClassName)
	require.NotNil(t, conf.BankDetails)
	assert.Equal(t, "012345678901234567", conf.BankDetails.CLABE)
	assert.Equal(t, "Oberfit S.A. de C.V.", conf.BankDetails.Beneficiary)
	repo.AssertExpectations(t)
}

func TestService_EnrollVisitor_VenueHasNoBankDetails(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("EnrollVisitor", mock.Anything, mock.MatchedBy(func(v *VisitorEnrollment) bool {
		return v.PaymentMethod == PaymentVenue
	})).Return(
		&VisitorEnrollment{ID: 10, ClassID: 7, PaymentMethod: PaymentVenue, ConfirmationCode: "482915"},
		&ClassSlot{ID: 7, Name: "Yoga", StartTime: classStart},
		nil,
	)

	conf, err := svc.EnrollVisitor(context.Background(), EnrollVisitorRequest{
		Name: "Luis", Email: "luis@example.com", ClassID: 7, PaymentMethod: "caja",
	})

	require.NoError(t, err)
	assert.Equal(t, "Pago en Caja", conf.PaymentMethodLabel)
	assert.Nil(t, conf.BankDetails)
}

func TestService_EnrollVisitor_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  EnrollVisitorRequest
	}{
		{"blank name", EnrollVisitorRequest{Name: "   ", Email: "a@example.com", ClassID: 1, PaymentMethod: "venue"}},
		{"bad email", EnrollVisitorRequest{Name: "Ana", Email: "not-an-email", ClassID: 1, PaymentMethod: "venue"}},
		{"missing class", EnrollVisitorRequest{Name: "Ana", Email: "a@example.com", PaymentMethod: "venue"}},
		{"member payment", EnrollVisitorRequest{Name: "Ana", Email: "a@example.com", ClassID: 1, PaymentMethod: "member"}},
		{"unknown payment", EnrollVisitorRequest{Name: "Ana", Email: "a@example.com", ClassID: 1, PaymentMethod: "bitcoin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := newTestService(repo)

			_, err := svc.EnrollVisitor(context.Background(), tt.req)

			assert.ErrorIs(t, err, apperr.ErrValidation)
			repo.AssertNotCalled(t, "EnrollVisitor", mock.Anything, mock.Anything)
		})
	}
}

func TestService_EnrollVisitor_NoSeats(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("EnrollVisitor", mock.Anything, mock.Anything).
		Return(nil, nil, apperr.New(apperr.KindNoSeatsAvailable, "enrollment.EnrollVisitor"))

	conf, err := svc.EnrollVisitor(context.Background(), EnrollVisitorRequest{
		Name: "Ana", Email: "ana@example.com", ClassID: 7, PaymentMethod: "venue",
	})

	assert.Nil(t, conf)
	assert.ErrorIs(t, err, apperr.ErrNoSeatsAvailable)
}

func TestConfirmationCode(t *testing.T) {
	re := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for i := 0; i < 200; i++ {
		assert.Regexp(t, re, confirmationCode())
	}
}

func TestService_ListAttendees_SortsByName(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("ListAttendees", mock.Anything, 7).Return([]Attendee{
		{Kind: AttendeeVisitor, EnrollmentID: 4, Name: ptr("Zoe")},
		{Kind: AttendeeMember, EnrollmentID: 3, Name: ptr("Ángel")},
		{Kind: AttendeeVisitor, EnrollmentID: 1, Name: ptr("ana")},
		{Kind: AttendeeVisitor, EnrollmentID: 2},
		{Kind: AttendeeMember, EnrollmentID: 9, Name: ptr("Bruno")},
	}, nil)

	attendees, err := svc.ListAttendees(context.Background(), employee, 7)

	require.NoError(t, err)
	ids := make([]int, len(attendees))
	for i, a := range attendees {
		ids[i] = a.EnrollmentID
	}
	assert.Equal(t, []int{2, 1, 3, 9, 4}, ids)
}

func TestSortAttendees_TiesAreStable(t *testing.T) {
	attendees := []Attendee{
		{Kind: AttendeeVisitor, EnrollmentID: 8, Name: ptr("Ana")},
		{Kind: AttendeeMember, EnrollmentID: 5, Name: ptr("Ana")},
		{Kind: AttendeeMember, EnrollmentID: 2, Name: ptr("Ana")},
	}

	SortAttendees(attendees)

	assert.Equal(t, 2, attendees[0].EnrollmentID)
	assert.Equal(t, 5, attendees[1].EnrollmentID)
	assert.Equal(t, 8, attendees[2].EnrollmentID)
}

func TestService_ListAttendees_MemberForbidden(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	_, err := svc.ListAttendees(context.Background(), member5, 7)

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	repo.AssertNotCalled(t, "ListAttendees", mock.Anything, mock.Anything)
}

func TestService_ListMemberEnrollments(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("ListMemberEnrollments", mock.Anything, 5).
		Return([]EnrollmentWithClass{{ClassName: "Yoga"}}, nil)

	got, err := svc.ListMemberEnrollments(context.Background(), member5, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.ListMemberEnrollments(context.Background(), member5, 6)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestService_Occupancy(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	to := testNow.AddDate(0, 0, 7)

	repo.On("OccupancyByDay", mock.Anything, testNow, to).
		Return([]OccupancyByDay{{Bucket: "2025-03-03", MemberEnrollments: 2}}, nil)
	repo.On("OccupancyByClass", mock.Anything, testNow, to).
		Return([]OccupancyByClass{}, nil)

	report, err := svc.Occupancy(context.Background(), testNow, to)

	require.NoError(t, err)
	assert.Len(t, report.ByDay, 1)
	assert.Empty(t, report.ByClass)
	repo.AssertExpectations(t)
}

func TestService_Occupancy_InvertedRange(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	_, err := svc.Occupancy(context.Background(), testNow, testNow)

	assert.ErrorIs(t, err, apperr.ErrValidation)
	repo.AssertNotCalled(t, "OccupancyByDay", mock.Anything, mock.Anything, mock.Anything)
}
