package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed public
var publicFS embed.FS

// headCloseTag はwindow.ENVスクリプトの挿入位置。
const headCloseTag = "</head>"

// StaticHandler は埋め込み済みフロントエンドの配信を担当する。
// HTMLには配信時にクライアント実行時設定がwindow.ENVとして注入される。
type StaticHandler struct {
	assets    fs.FS
	envScript []byte
}

// NewStaticHandler はStaticHandlerを生成する。
// clientEnvはHTMLへ注入するwindow.ENVのキーと値。
func NewStaticHandler(clientEnv map[string]string) (*StaticHandler, error) {
	assets, err := fs.Sub(publicFS, "public")
	if err != nil {
		return nil, fmt.Errorf("埋め込みアセットの初期化に失敗しました: %w", err)
	}

	envJSON, err := json.Marshal(clientEnv)
	if err != nil {
		return nil, fmt.Errorf("クライアント設定のエンコードに失敗しました: %w", err)
	}

	return &StaticHandler{
		assets:    assets,
		envScript: []byte("<script>window.ENV = " + string(envJSON) + ";</script>"),
	}, nil
}

// ServeHTTP は静的アセットとSPAシェルを配信する。
//   - "/" と拡張子なしのパスはindex.htmlを返す（SPAのフォールバック）
//   - "/attend/{eventID}" は公開チェックインページattend.htmlを返す
//   - 拡張子付きのパスは埋め込みアセットから配信し、存在しなければ404
//   - "/api/" 配下の未定義パスはシェルを返さず404
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := path.Clean(r.URL.Path)

	if strings.HasPrefix(p, "/api/") || p == "/api" {
		http.NotFound(w, r)
		return
	}

	if strings.HasPrefix(p, "/attend/") {
		h.servePage(w, "attend.html")
		return
	}

	if p == "/" || !strings.Contains(path.Base(p), ".") {
		h.servePage(w, "index.html")
		return
	}

	h.serveAsset(w, r, strings.TrimPrefix(p, "/"))
}

// servePage はHTMLページにwindow.ENVを注入して返す。
func (h *StaticHandler) servePage(w http.ResponseWriter, name string) {
	raw, err := fs.ReadFile(h.assets, name)
	if err != nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(h.injectEnv(raw))
}

// serveAsset は拡張子付きの静的アセットを配信する。
func (h *StaticHandler) serveAsset(w http.ResponseWriter, r *http.Request, name string) {
	f, err := h.assets.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	f.Close()

	http.FileServer(http.FS(h.assets)).ServeHTTP(w, r)
}

// injectEnv は</head>の直前にwindow.ENVスクリプトを挿入する。
// </head>が見つからない場合はそのまま返す。
func (h *StaticHandler) injectEnv(page []byte) []byte {
	idx := bytes.Index(page, []byte(headCloseTag))
	if idx < 0 {
		return page
	}

	out := make([]byte, 0, len(page)+len(h.envScript))
	out = append(out, page[:idx]...)
	out = append(out, h.envScript...)
	out = append(out, page[idx:]...)
	return out
}
