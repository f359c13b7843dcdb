package model

// AnonymousIdentifier は匿名ユーザーを表す識別子。識別子なしと同等に扱う。
const AnonymousIdentifier = "anonymousUser"

// PrincipalKind はプリンシパルの出自を表す。
type PrincipalKind int

const (
	// PrincipalDirect は同一リクエスト内で資格情報を直接検証して得たプリンシパル。
	PrincipalDirect PrincipalKind = iota + 1
	// PrincipalStructured は保存済みセッションから復元した構造化プリンシパル。
	PrincipalStructured
	// PrincipalOpaque は保存済みセッションから復元したが、文字列表現しか持たないプリンシパル。
	PrincipalOpaque
)

// UserDetails は構造化プリンシパルが保持するユーザー情報。
// Username には認証キー（メールアドレス）が入る。
type UserDetails struct {
	UserID   string
	Username string
}

// Principal は認証済みアイデンティティのタグ付きユニオン。
// ゼロ値はどのバリアントにも属さず、識別子を持たない。
type Principal struct {
	kind      PrincipalKind
	name      string
	details   UserDetails
	rendering string
}

// DirectCredential は資格情報の直接送信で認証されたプリンシパルを生成する。
func DirectCredential(identifier string) Principal {
	return Principal{kind: PrincipalDirect, name: identifier}
}

// StructuredPrincipal はセッションから復元した構造化プリンシパルを生成する。
func StructuredPrincipal(details UserDetails) Principal {
	return Principal{kind: PrincipalStructured, details: details}
}

// OpaquePrincipal は文字列表現のみを持つプリンシパルを生成する。
func OpaquePrincipal(rendering string) Principal {
	return Principal{kind: PrincipalOpaque, rendering: rendering}
}

// Kind はプリンシパルのバリアントを返す。
func (p Principal) Kind() PrincipalKind {
	return p.kind
}

// Identifier はバリアントごとの規則で認証キーを取り出す。
//   - Direct: 認証に使った名前
//   - Structured: UserDetails.Username
//   - Opaque: 文字列表現
//
// 識別子を持たない場合は空文字列を返す。
func (p Principal) Identifier() string {
	switch p.kind {
	case PrincipalDirect:
		return p.name
	case PrincipalStructured:
		return p.details.Username
	case PrincipalOpaque:
		return p.rendering
	default:
		return ""
	}
}

// Authentication はリクエスト単位の認証状態。
// グローバルには保持せず、リクエストコンテキストで受け渡す。
type Authentication struct {
	Principal     Principal
	Authenticated bool
	UserID        string
	SessionID     string
}

// IsAuthenticated は認証済みかどうかを返す。nil は未認証として扱う。
func (a *Authentication) IsAuthenticated() bool {
	return a != nil && a.Authenticated
}

// UserIdentity はクライアントに公開するユーザー情報の読み取りモデル。
// 任意のテキスト属性は null にせず空文字列に揃える。
type UserIdentity struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	IsNewUser       bool    `json:"isNewUser"`
	ImageURL        string  `json:"imageUrl"`
	Role            string  `json:"role"`
	FamilyProfileID *string `json:"familyProfileId"`
}

// NewUserIdentity はUserからUserIdentityを組み立てる。
// familyProfileId はプロフィールに参加している場合のみ設定し、それ以外は null とする。
func NewUserIdentity(u *User) UserIdentity {
	identity := UserIdentity{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: derefOr(u.FirstName, ""),
		LastName:  derefOr(u.LastName, ""),
		IsNewUser: u.IsNewUser,
		ImageURL:  derefOr(u.ImageURL, ""),
		Role:      derefOr(u.Role, DefaultRole),
	}
	if identity.Role == "" {
		identity.Role = DefaultRole
	}
	if u.FamilyProfileID != nil && *u.FamilyProfileID != "" {
		id := *u.FamilyProfileID
		identity.FamilyProfileID = &id
	}
	return identity
}

// UserSummary はログイン・登録レスポンスに含めるユーザー情報。
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsNewUser bool   `json:"isNewUser"`
}

// NewUserSummary はUserからUserSummaryを組み立てる。
func NewUserSummary(u *User) UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: derefOr(u.FirstName, ""),
		LastName:  derefOr(u.LastName, ""),
		IsNewUser: u.IsNewUser,
	}
}

// IdentityResult は現在ユーザー解決の結果。
// 未認証の場合は理由にかかわらず {"isAuthenticated": false} のみを表す。
type IdentityResult struct {
	IsAuthenticated bool          `json:"isAuthenticated"`
	User            *UserIdentity `json:"user,omitempty"`
}

// Unauthenticated は未認証の結果を返す。
func Unauthenticated() IdentityResult {
	return IdentityResult{}
}

// Authenticated は認証済みの結果を返す。
func Authenticated(identity UserIdentity) IdentityResult {
	return IdentityResult{IsAuthenticated: true, User: &identity}
}
