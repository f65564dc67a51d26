package auth

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleMember   Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleMember:
		return true
	}
	return false
}

// Identity is the authenticated caller handed to every operation that
// needs an authorization decision.
type Identity struct {
	UserID int
	Role   Role
}

func (i Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleEmployee
}

// CanActFor reports whether the caller may act on behalf of memberID.
func (i Identity) CanActFor(memberID int) bool {
	if i.IsStaff() {
		return true
	}
	return i.Role == RoleMember && i.UserID == memberID
}
