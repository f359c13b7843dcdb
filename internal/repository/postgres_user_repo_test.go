package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/finwise/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// PostgresTransactionRepoはTransactionRepositoryインターフェースを満たすことを検証
func TestPostgresTransactionRepo_ImplementsInterface(t *testing.T) {
	var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// 一意制約違反が制約名に応じたAPIErrorに変換されることを検証
func TestUniqueViolationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "メールアドレス重複",
			err:      &pq.Error{Code: "23505", Constraint: "users_email_key"},
			wantCode: model.ErrCodeEmailExists,
		},
		{
			name:     "ユーザー名重複",
			err:      &pq.Error{Code: "23505", Constraint: "users_username_key"},
			wantCode: model.ErrCodeUsernameTaken,
		},
		{
			name:     "未知の一意制約",
			err:      &pq.Error{Code: "23505", Constraint: "users_pkey"},
			wantCode: model.ErrCodeUserAlreadyExists,
		},
		{
			name:     "ラップされた一意制約違反",
			err:      fmt.Errorf("exec: %w", &pq.Error{Code: "23505", Constraint: "users_email_key"}),
			wantCode: model.ErrCodeEmailExists,
		},
		{
			name: "一意制約以外のpqエラー",
			err:  &pq.Error{Code: "23503", Constraint: "users_family_profile_id_fkey"},
		},
		{
			name: "pq以外のエラー",
			err:  errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uniqueViolationError(tt.err)
			if tt.wantCode == "" {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected APIError %s, got nil", tt.wantCode)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

// fakeRow はScanの結果を差し替えるためのモック。
type fakeRow struct {
	values []any
	err    error
}

func (f *fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	if len(dest) != len(f.values) {
		return fmt.Errorf("scan: got %d destinations, want %d", len(dest), len(f.values))
	}
	for i, v := range f.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *bool:
			*d = v.(bool)
		case *time.Time:
			*d = v.(time.Time)
		case *sql.NullString:
			*d = v.(sql.NullString)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// NULL列がnilポインタとして読み込まれることを検証
func TestScanUser_NullColumnsBecomeNil(t *testing.T) {
	now := time.Now()
	row := &fakeRow{values: []any{
		"user-1", "alice", "alice@example.com", "hash",
		sql.NullString{}, sql.NullString{String: "Smith", Valid: true}, sql.NullString{}, sql.NullString{},
		true, true, sql.NullString{},
		now, now,
	}}

	user, err := scanUser(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.FirstName != nil {
		t.Errorf("FirstName = %v, want nil", *user.FirstName)
	}
	if user.LastName == nil || *user.LastName != "Smith" {
		t.Errorf("LastName = %v, want Smith", user.LastName)
	}
	if user.Role != nil {
		t.Errorf("Role = %v, want nil", *user.Role)
	}
	if user.FamilyProfileID != nil {
		t.Errorf("FamilyProfileID = %v, want nil", *user.FamilyProfileID)
	}
	if !user.IsNewUser || !user.Enabled {
		t.Error("expected IsNewUser and Enabled to be true")
	}
}

// 行が存在しない場合はnil, nilを返すことを検証
func TestScanUser_NoRows(t *testing.T) {
	user, err := scanUser(&fakeRow{err: sql.ErrNoRows})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestNullString(t *testing.T) {
	if ns := nullString(nil); ns.Valid {
		t.Error("nil should map to invalid NullString")
	}
	s := "Tokyo"
	if ns := nullString(&s); !ns.Valid || ns.String != "Tokyo" {
		t.Errorf("nullString(&%q) = %+v", s, ns)
	}
}
