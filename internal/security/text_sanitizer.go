// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが入力する表示用テキスト（氏名、取引カテゴリ、メモ）から
// HTMLを取り除き、保存前にプレーンテキストへ正規化する。
// bluemondayのStrictPolicyで全てのタグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト化のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize は入力から全てのHTMLタグを除去し、前後の空白を取り除いた文字列を返す。
	// script, styleタグは中身ごと除去される。
	// 空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLを除去したプレーンテキストを返す。
// StrictPolicyがエスケープした実体参照は元の文字に戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
