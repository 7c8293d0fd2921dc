package auth

const (
	PermLeaveRead      = "leave.read"
	PermLeaveWrite     = "leave.write"
	PermLeaveApprove   = "leave.approve"
	PermDirectoryRead  = "directory.read"
	PermDirectoryWrite = "directory.write"
	PermTypesManage    = "leave.types.manage"
	PermHolidaysManage = "holidays.manage"
	PermBalancesManage = "balances.manage"
	PermReportsRead    = "reports.read"
	PermAuditRead      = "audit.read"
	PermChatbotUse     = "chatbot.use"
	PermSystemAdmin    = "admin.system"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLeaveRead,
		PermLeaveWrite,
		PermDirectoryRead,
		PermChatbotUse,
	},
	RoleManager: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermDirectoryRead,
		PermReportsRead,
		PermChatbotUse,
	},
	RoleAdmin: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermDirectoryRead,
		PermDirectoryWrite,
		PermTypesManage,
		PermHolidaysManage,
		PermBalancesManage,
		PermReportsRead,
		PermAuditRead,
		PermChatbotUse,
		PermSystemAdmin,
	},
}

// HasPermission checks a role against the static grant table.
func HasPermission(role, permission string) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
