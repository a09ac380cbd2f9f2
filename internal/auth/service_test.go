package auth

import (
	"testing"

	"github.com/denysvitali/immich-go-backend/internal/config"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.AuthConfig
		password string
		wantErr  bool
	}{
		{
			name:     "meets minimum length",
			cfg:      config.AuthConfig{PasswordMinLength: 8},
			password: "hunter22",
			wantErr:  false,
		},
		{
			name:     "too short",
			cfg:      config.AuthConfig{PasswordMinLength: 8},
			password: "short",
			wantErr:  true,
		},
		{
			name: "missing required uppercase",
			cfg: config.AuthConfig{
				PasswordMinLength:        8,
				PasswordRequireUppercase: true,
			},
			password: "hunter22",
			wantErr:  true,
		},
		{
			name: "missing required lowercase",
			cfg: config.AuthConfig{
				PasswordMinLength:        8,
				PasswordRequireLowercase: true,
			},
			password: "HUNTER22",
			wantErr:  true,
		},
		{
			name: "missing required number",
			cfg: config.AuthConfig{
				PasswordMinLength:      8,
				PasswordRequireNumbers: true,
			},
			password: "hunterhunter",
			wantErr:  true,
		},
		{
			name: "missing required symbol",
			cfg: config.AuthConfig{
				PasswordMinLength:      8,
				PasswordRequireSymbols: true,
			},
			password: "hunter22",
			wantErr:  true,
		},
		{
			name: "satisfies all complexity requirements",
			cfg: config.AuthConfig{
				PasswordMinLength:        8,
				PasswordRequireUppercase: true,
				PasswordRequireLowercase: true,
				PasswordRequireNumbers:   true,
				PasswordRequireSymbols:   true,
			},
			password: "Hunter22!",
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Service{config: tt.cfg}
			err := s.validatePassword(tt.password)
			if tt.wantErr && err == nil {
				t.Fatalf("validatePassword(%q) = nil, want error", tt.password)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("validatePassword(%q) = %v, want nil", tt.password, err)
			}
		})
	}
}
