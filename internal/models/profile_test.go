package models

import "testing"

// TestProfileIsAdmin verifies that IsAdmin returns true only for the admin role.
func TestProfileIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{name: "admin role", role: RoleAdmin, want: true},
		{name: "editor role", role: RoleEditor, want: false},
		{name: "reader role", role: RoleReader, want: false},
		{name: "empty role", role: Role(""), want: false},
		{name: "uppercase ADMIN", role: Role("ADMIN"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{Role: tt.role}
			if got := p.IsAdmin(); got != tt.want {
				t.Errorf("Profile{Role: %q}.IsAdmin() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

// TestProfileNeeds2FASetup checks that only staff without TOTP are prompted.
func TestProfileNeeds2FASetup(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		enabled bool
		want    bool
	}{
		{"admin without totp", RoleAdmin, false, true},
		{"admin with totp", RoleAdmin, true, false},
		{"editor without totp", RoleEditor, false, true},
		{"reader without totp", RoleReader, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{Role: tt.role, TOTPEnabled: tt.enabled}
			if got := p.Needs2FASetup(); got != tt.want {
				t.Errorf("Needs2FASetup() = %v, want %v", got, tt.want)
			}
		})
	}
}
