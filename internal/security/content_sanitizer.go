// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は主催者が入力したイベント名・説明文をサニタイズし、
// 公開出欠ページに表示される際のXSS攻撃からユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// イベントのテキストフィールドに不要なHTMLをすべて除去する。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー入力のサニタイズ機能のインターフェースを定義する。
// イベントの作成・更新時、および参加者名の登録時に使用される。
type ContentSanitizerService interface {
	// SanitizeText はプレーンテキストフィールド（イベント名、参加者名など）を
	// サニタイズする。HTMLタグはすべて除去され、エンティティはデコードされた
	// プレーンテキストが返る。前後の空白も除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string

	// SanitizeDescription はイベント説明文をサニタイズする。
	// 許可タグ（p, br, ul, ol, li, strong, em, a）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	SanitizeDescription(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	strict      *bluemonday.Policy
	description *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayの2つのポリシーを構築する。
// ポリシーの内容:
//   - strict: 全タグ除去（StrictPolicy）。イベント名・参加者名向け
//   - description: p, br, ul, ol, li, strong, em, a を許可。説明文向け
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
func NewContentSanitizer() *contentSanitizer {
	d := bluemonday.NewPolicy()

	// 許可タグの設定（属性なしのシンプルなタグ）
	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	d.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)

	// aタグの設定:
	// - href属性を許可（httpsスキームのみ）
	// - 相対URLは不許可
	// - target="_blank"を全リンクに強制付与
	// - rel="noreferrer noopener"を強制付与
	d.AllowAttrs("href").OnElements("a")
	d.AllowRelativeURLs(false)
	d.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})
	d.AddTargetBlankToFullyQualifiedLinks(true)
	d.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		strict:      bluemonday.StrictPolicy(),
		description: d,
	}
}

// SanitizeText はプレーンテキストフィールドをサニタイズする。
// StrictPolicyはタグ除去後にエンティティをエスケープして返すため、
// 保存用のプレーンテキストとしてはデコードして戻す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(raw)))
}

// SanitizeDescription はイベント説明文をサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeDescription(rawHTML string) string {
	return s.description.Sanitize(rawHTML)
}
