package leave

import "leavedesk/internal/domain/auth"

// Actor is the acting user, passed explicitly into every transition. The
// domain never reads an ambient session.
type Actor struct {
	ID   string
	Role string
}

// CanApprove reports whether the actor may approve or reject a request owned
// by ownerID. Admins always can; a manager only for direct reports. The check
// is deliberately single-level: a manager's manager has no inherited
// authority.
func CanApprove(actor Actor, ownerManagerID string) bool {
	if actor.Role == auth.RoleAdmin {
		return true
	}
	return actor.Role == auth.RoleManager && ownerManagerID != "" && ownerManagerID == actor.ID
}

// CanCancel reports whether the actor may cancel a request owned by ownerID.
func CanCancel(actor Actor, ownerID string) bool {
	return actor.ID == ownerID || actor.Role == auth.RoleAdmin
}
