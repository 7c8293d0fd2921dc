package leave

import (
	"testing"

	"leavedesk/internal/domain/auth"
)

func TestCanApprove(t *testing.T) {
	cases := []struct {
		name           string
		actor          Actor
		ownerManagerID string
		want           bool
	}{
		{"admin always", Actor{ID: "a", Role: auth.RoleAdmin}, "someone-else", true},
		{"direct manager", Actor{ID: "m", Role: auth.RoleManager}, "m", true},
		{"other manager", Actor{ID: "m", Role: auth.RoleManager}, "m2", false},
		{"owner has no manager", Actor{ID: "m", Role: auth.RoleManager}, "", false},
		{"employee never", Actor{ID: "e", Role: auth.RoleEmployee}, "e", false},
	}
	for _, tc := range cases {
		if got := CanApprove(tc.actor, tc.ownerManagerID); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanCancel(t *testing.T) {
	if !CanCancel(Actor{ID: "u1", Role: auth.RoleEmployee}, "u1") {
		t.Fatal("owner must be able to cancel")
	}
	if !CanCancel(Actor{ID: "a", Role: auth.RoleAdmin}, "u1") {
		t.Fatal("admin must be able to cancel")
	}
	if CanCancel(Actor{ID: "m", Role: auth.RoleManager}, "u1") {
		t.Fatal("manager must not cancel on behalf of a report")
	}
}
