// Package qr はイベントチェックイン用QRコードの生成と読取結果の解析を提供する。
package qr

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// pngSize は生成するQRコード画像の一辺のピクセル数。
const pngSize = 256

// ErrInvalidPayload はチェックインURLとして解釈できない読取結果に対して返される。
var ErrInvalidPayload = errors.New("qr: payload is not a check-in URL")

// checkinPathPattern はチェックインURLのパス形式。
// 末尾のスラッシュは許容する。
var checkinPathPattern = regexp.MustCompile(`^/attend/([A-Za-z0-9_-]+)/?$`)

// BuildCheckinURL はイベントの公開チェックインページURLを組み立てる。
// 形式: {baseURL}/attend/{eventID}
func BuildCheckinURL(baseURL, eventID string) string {
	return strings.TrimRight(baseURL, "/") + "/attend/" + eventID
}

// EncodePNG はチェックインURLをQRコードPNG画像にエンコードする。
func EncodePNG(checkinURL string) ([]byte, error) {
	png, err := qrcode.Encode(checkinURL, qrcode.Medium, pngSize)
	if err != nil {
		return nil, err
	}
	return png, nil
}

// ParseCheckinPayload はQRコードの読取結果からイベントIDを抽出する。
// 絶対URL（https://example.com/attend/evt123）とパスのみ（/attend/evt123）の
// 両方を受け付ける。チェックインURLとして解釈できない場合はErrInvalidPayloadを返す。
func ParseCheckinPayload(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ErrInvalidPayload
	}

	path := payload
	if strings.Contains(payload, "://") {
		u, err := url.Parse(payload)
		if err != nil {
			return "", ErrInvalidPayload
		}
		path = u.Path
	}

	m := checkinPathPattern.FindStringSubmatch(path)
	if m == nil {
		return "", ErrInvalidPayload
	}
	return m[1], nil
}
