package auth

import "testing"

func TestMapRole(t *testing.T) {
	tests := []struct {
		raw    string
		want   Role
		wantOk bool
	}{
		{raw: "ADMIN", want: RoleAdmin, wantOk: true},
		{raw: "admin", want: RoleAdmin, wantOk: true},
		{raw: "CollegeAdmin", want: RoleTenantAdmin, wantOk: true},
		{raw: "COLLEGEADMIN", want: RoleTenantAdmin, wantOk: true},
		{raw: "COLLEGE_ADMIN", want: RoleTenantAdmin, wantOk: true},
		{raw: "college_admin", want: RoleTenantAdmin, wantOk: true},
		{raw: "Teacher", want: RoleStaff, wantOk: true},
		{raw: "student", want: RoleMember, wantOk: true},
		// canonical names
		{raw: "TENANT_ADMIN", want: RoleTenantAdmin, wantOk: true},
		{raw: "staff", want: RoleStaff, wantOk: true},
		{raw: "Member", want: RoleMember, wantOk: true},
		{raw: "guest", want: RoleGuest, wantOk: true},
		// unmappable
		{raw: "SuperUser"},
		{raw: ""},
		{raw: " ADMIN"},
		{raw: "ADMIN "},
		{raw: "college admin"},
		{raw: "teachers"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := MapRole(tt.raw)
			if ok != tt.wantOk {
				t.Fatalf("MapRole(%q) ok = %v, wantOk %v", tt.raw, ok, tt.wantOk)
			}
			if got != tt.want {
				t.Errorf("MapRole(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMapRole_deterministic(t *testing.T) {
	for _, raw := range []string{"CollegeAdmin", "COLLEGE_ADMIN", "college_admin"} {
		for i := 0; i < 3; i++ {
			if got, _ := MapRole(raw); got != RoleTenantAdmin {
				t.Fatalf("MapRole(%q) = %q on call %d", raw, got, i)
			}
		}
	}
}

func TestRole_In(t *testing.T) {
	if RoleAdmin.In(RoleStaff, RoleTenantAdmin) {
		t.Error("ADMIN must not inherit STAFF or TENANT_ADMIN capabilities")
	}
	if !RoleStaff.In(RoleTenantAdmin, RoleStaff) {
		t.Error("STAFF should be in [TENANT_ADMIN STAFF]")
	}
	if Role("ROOT").IsValid() {
		t.Error("ROOT should not be a valid role")
	}
}
