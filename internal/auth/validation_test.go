package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/finwise/internal/model"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *model.ValidationError, got %T (%v)", err, err)
	}
	out := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidateRegistration_Valid(t *testing.T) {
	reg := model.Registration{
		Username:  "alice_01",
		Email:     "alice@example.com",
		Password:  "longenough",
		FirstName: "Alice",
		ImageURL:  "https://example.com/a.png",
	}
	if err := ValidateRegistration(reg); err != nil {
		t.Fatalf("ValidateRegistration() error = %v", err)
	}
}

func TestValidateRegistration_RequiredFields(t *testing.T) {
	fields := fieldsOf(t, ValidateRegistration(model.Registration{}))

	for _, name := range []string{"username", "email", "password"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("missing error for %q: %v", name, fields)
		}
	}
	if _, ok := fields["firstName"]; ok {
		t.Error("firstName is optional")
	}
}

func TestValidateRegistration_FieldRules(t *testing.T) {
	base := model.Registration{Username: "alice", Email: "alice@example.com", Password: "longenough"}

	tests := []struct {
		name   string
		mutate func(r *model.Registration)
		field  string
	}{
		{"ユーザー名が短い", func(r *model.Registration) { r.Username = "ab" }, "username"},
		{"ユーザー名に空白", func(r *model.Registration) { r.Username = "al ice" }, "username"},
		{"ユーザー名が長い", func(r *model.Registration) { r.Username = strings.Repeat("a", 51) }, "username"},
		{"メールアドレス形式", func(r *model.Registration) { r.Email = "alice.example.com" }, "email"},
		{"パスワードが短い", func(r *model.Registration) { r.Password = "short" }, "password"},
		{"パスワードが長い", func(r *model.Registration) { r.Password = strings.Repeat("p", 101) }, "password"},
		{"姓が長い", func(r *model.Registration) { r.LastName = strings.Repeat("x", 101) }, "lastName"},
		{"画像URLが不正", func(r *model.Registration) { r.ImageURL = "not a url" }, "imageUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := base
			tt.mutate(&reg)
			fields := fieldsOf(t, ValidateRegistration(reg))
			if _, ok := fields[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, fields)
			}
			if len(fields) != 1 {
				t.Errorf("expected only %q to fail, got %v", tt.field, fields)
			}
		})
	}
}

func TestValidateRegistration_PasswordByteLimit(t *testing.T) {
	base := model.Registration{Username: "alice", Email: "alice@example.com"}

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"ちょうど72バイト", strings.Repeat("a", 72), false},
		{"73バイト", strings.Repeat("a", 73), true},
		{"24文字のかな（72バイト）", strings.Repeat("あ", 24), false},
		{"30文字のかな（90バイト）", strings.Repeat("あ", 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := base
			reg.Password = tt.password
			err := ValidateRegistration(reg)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("ValidateRegistration() error = %v", err)
				}
				return
			}
			fields := fieldsOf(t, err)
			if got := fields["password"]; got != "password must be at most 72 bytes" {
				t.Errorf("password message = %q", got)
			}
		})
	}
}
