package enrollment

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentMember   PaymentMethod = "member"
	PaymentVenue    PaymentMethod = "venue"
	PaymentTransfer PaymentMethod = "transfer"
)

var paymentAliases = map[string]PaymentMethod{
	"venue":         PaymentVenue,
	"caja":          PaymentVenue,
	"transfer":      PaymentTransfer,
	"transferencia": PaymentTransfer,
}

// ParseVisitorPayment maps a form value to a visitor payment method.
// Member bookings never go through here.
func ParseVisitorPayment(value string) (PaymentMethod, bool) {
	pm, ok := paymentAliases[strings.ToLower(strings.TrimSpace(value))]
	return pm, ok
}

func (p PaymentMethod) Label() string {
	switch p {
	case PaymentVenue:
		return "Pago en Caja"
	case PaymentTransfer:
		return "Transferencia Bancaria"
	case PaymentMember:
		return "Socio"
	default:
		return string(p)
	}
}

type Enrollment struct {
	ID            int           `db:"id" json:"id"`
	MemberID      int           `db:"member_id" json:"member_id"`
	ClassID       int           `db:"class_id" json:"class_id"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	RegisteredAt  time.Time     `db:"registered_at" json:"registered_at"`
}

type EnrollmentWithClass struct {
	Enrollment
	ClassName        string    `db:"class_name" json:"class_name"`
	ClassDescription string    `db:"class_description" json:"class_description"`
	ClassStartTime   time.Time `db:"class_start_time" json:"class_start_time"`
}

type VisitorEnrollment struct {
	ID               int           `db:"id" json:"id"`
	Name             string        `db:"name" json:"name"`
	Email            string        `db:"email" json:"email"`
	ClassID          int           `db:"class_id" json:"class_id"`
	PaymentMethod    PaymentMethod `db:"payment_method" json:"payment_method"`
	ConfirmationCode string        `db:"confirmation_code" json:"confirmation_code"`
	RegisteredAt     time.Time     `db:"registered_at" json:"registered_at"`
}

// ClassSlot is the locked view of a class row inside an enrollment
// transaction.
type ClassSlot struct {
	ID             int       `db:"id"`
	Name           string    `db:"name"`
	StartTime      time.Time `db:"start_time"`
	AvailableSeats int       `db:"available_seats"`
}

// MemberQuota is the locked view of a user row inside an enrollment
// transaction.
type MemberQuota struct {
	ID               int        `db:"id"`
	Role             string     `db:"role"`
	RemainingClasses int        `db:"remaining_classes"`
	LastResetMonth   *time.Time `db:"last_reset_month"`
}

type MemberEnrollmentResult struct {
	Enrollment       Enrollment `json:"enrollment"`
	RemainingClasses int        `json:"remaining_classes"`
	QuotaRefilled    bool       `json:"quota_refilled"`
}

type AttendeeKind string

const (
	AttendeeMember  AttendeeKind = "member"
	AttendeeVisitor AttendeeKind = "visitor"
)

type Attendee struct {
	Kind          AttendeeKind  `db:"kind" json:"kind"`
	EnrollmentID  int           `db:"enrollment_id" json:"enrollment_id"`
	Name          *string       `db:"name" json:"name"`
	Email         *string       `db:"email" json:"email"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	RegisteredAt  time.Time     `db:"registered_at" json:"registered_at"`
}

func (a Attendee) sortName() string {
	if a.Name == nil {
		return ""
	}
	return *a.Name
}

type EnrollVisitorRequest struct {
	Name          string `json:"name" binding:"required" validate:"required,max=200"`
	Email         string `json:"email" binding:"required" validate:"required,email"`
	ClassID       int    `json:"class_id" binding:"required" validate:"required,min=1"`
	PaymentMethod string `json:"payment_method" binding:"required" validate:"required"`
}

type BankDetails struct {
	Bank        string `json:"banco" example:"Tu Banco Aquí"`
	Account     string `json:"cuenta" example:"1234567890"`
	CLABE       string `json:"clabe" example:"012345678901234567"`
	Beneficiary string `json:"beneficiario" example:"Oberfit S.A. de C.V."`
}

// transferDetails are the fixed instructions shown for bank transfers.
var transferDetails = BankDetails{
	Bank:        "Tu Banco Aquí",
	Account:     "1234567890",
	CLABE:       "012345678901234567",
	Beneficiary: "Oberfit S.A. de C.V.",
}

type VisitorConfirmation struct {
	ID                 int          `json:"id"`
	Name               string       `json:"name"`
	Email              string       `json:"email"`
	ClassName          string       `json:"class_name"`
	ClassStartTime     time.Time    `json:"class_start_time"`
	ConfirmationCode   string       `json:"confirmation_code" example:"482915"`
	PaymentMethodLabel string       `json:"payment_method_label" example:"Transferencia Bancaria"`
	BankDetails        *BankDetails `json:"bank_details"`
}
