package auth

// Role is one of the closed set of privilege levels. The zero value is not
// a valid role; unknown strings parse to ("", false).
type Role string

const (
	RoleMember       Role = "Member"
	RoleModerator    Role = "Moderator"
	RoleEventStaff   Role = "Event Staff"
	RoleAdmin        Role = "Admin"
	RoleOrganization Role = "Organization"
)

type capabilities struct {
	awardPoints    bool
	viewAllHistory bool
	sendNewsletter bool
	manageRoles    bool
}

// roleTable is the single source of truth for what each role may do.
// Handlers check capabilities, never raw role strings.
var roleTable = map[Role]capabilities{
	RoleMember:       {},
	RoleModerator:    {awardPoints: true, viewAllHistory: true},
	RoleEventStaff:   {awardPoints: true, viewAllHistory: true},
	RoleAdmin:        {awardPoints: true, viewAllHistory: true, sendNewsletter: true, manageRoles: true},
	RoleOrganization: {viewAllHistory: true},
}

// ParseRole maps a stored role string to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleTable[r]
	if !ok {
		return "", false
	}
	return r, true
}

func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

// CanAwardPoints reports whether the role may credit points to other users.
func (r Role) CanAwardPoints() bool {
	return roleTable[r].awardPoints
}

// CanViewAllHistory reports whether the role may read other users'
// transaction history. Members are always scoped to their own.
func (r Role) CanViewAllHistory() bool {
	return roleTable[r].viewAllHistory
}

// CanSendNewsletter reports whether the role may trigger bulk newsletter sends.
func (r Role) CanSendNewsletter() bool {
	return roleTable[r].sendNewsletter
}

// CanManageRoles reports whether the role may change other users' roles.
func (r Role) CanManageRoles() bool {
	return roleTable[r].manageRoles
}
