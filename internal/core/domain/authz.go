package domain

// Role is a workspace membership role.
type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleOwner        Role = "OWNER"
	RoleFinanceAdmin Role = "FINANCE_ADMIN"
	RoleContractor   Role = "CONTRACTOR"
)

// Permission is a privileged action a role may hold.
type Permission string

const (
	PermViewDashboard     Permission = "VIEW_DASHBOARD"
	PermInviteContractor  Permission = "INVITE_CONTRACTOR"
	PermViewContractors   Permission = "VIEW_CONTRACTORS"
	PermViewApprovals     Permission = "VIEW_APPROVALS"
	PermCreateInvoice     Permission = "CREATE_INVOICE"
	PermApproveInvoice    Permission = "APPROVE_INVOICE"
	PermCreatePayout      Permission = "CREATE_PAYOUT"
	PermIssueCard         Permission = "ISSUE_CARD"
	PermViewAuditLog      Permission = "VIEW_AUDIT_LOG"
	PermManageOrgSecurity Permission = "MANAGE_ORG_SECURITY"
	PermWithdrawFunds     Permission = "WITHDRAW_FUNDS"
)

var allPermissions = []Permission{
	PermViewDashboard, PermInviteContractor, PermViewContractors, PermViewApprovals,
	PermCreateInvoice, PermApproveInvoice, PermCreatePayout, PermIssueCard,
	PermViewAuditLog, PermManageOrgSecurity, PermWithdrawFunds,
}

var rolePermissions = map[Role]map[Permission]bool{
	RoleSuperAdmin: permSet(allPermissions...),
	RoleOwner:      permSet(allPermissions...),
	RoleFinanceAdmin: permSet(
		PermViewDashboard, PermInviteContractor, PermViewContractors, PermViewApprovals,
		PermCreateInvoice, PermApproveInvoice, PermCreatePayout, PermViewAuditLog,
	),
	RoleContractor: permSet(PermViewDashboard, PermWithdrawFunds),
}

func permSet(perms ...Permission) map[Permission]bool {
	m := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Can reports whether role r holds permission p. Unknown roles hold nothing.
func (r Role) Can(p Permission) bool {
	return rolePermissions[r][p]
}

// RequiresSecondFactor reports whether r must present a verified second
// factor before privileged mutations under checklist c.
func (r Role) RequiresSecondFactor(c Checklist) bool {
	if !c.Require2FAForAdmins {
		return false
	}
	return r == RoleOwner || r == RoleFinanceAdmin
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   Role
}
