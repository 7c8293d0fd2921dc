package auth

import "testing"

func TestHasPermission(t *testing.T) {
	cases := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleEmployee, PermLeaveWrite, true},
		{RoleEmployee, PermLeaveApprove, false},
		{RoleEmployee, PermAuditRead, false},
		{RoleManager, PermLeaveApprove, true},
		{RoleManager, PermReportsRead, true},
		{RoleManager, PermTypesManage, false},
		{RoleAdmin, PermSystemAdmin, true},
		{RoleAdmin, PermBalancesManage, true},
		{"intruder", PermLeaveRead, false},
	}
	for _, tc := range cases {
		if got := HasPermission(tc.role, tc.permission); got != tc.want {
			t.Fatalf("HasPermission(%q, %q) = %v, want %v", tc.role, tc.permission, got, tc.want)
		}
	}
}

func TestEveryRoleCanUseChatbot(t *testing.T) {
	for _, role := range []string{RoleEmployee, RoleManager, RoleAdmin} {
		if !HasPermission(role, PermChatbotUse) {
			t.Fatalf("expected %s to have chatbot access", role)
		}
	}
}
