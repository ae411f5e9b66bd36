package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/devent/internal/security"
)

// allowedContentTypes は取り込みを許可する画像のMIMEタイプ。
var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// FetcherService はURL指定の画像取り込み機能のインターフェースを定義する。
type FetcherService interface {
	// Fetch は外部URLから画像を取得する。
	// SSRF防止の事前検証とクライアント側検証の両方を通過したURLのみ
	// 取得でき、サイズ上限と画像MIMEタイプの検証を行う。
	Fetch(ctx context.Context, rawURL string) (data []byte, contentType string, err error)
}

// fetcher はFetcherServiceの実装。
type fetcher struct {
	client  *http.Client
	guard   security.SSRFGuardService
	maxSize int64
}

// NewFetcher はSSRF防止付きの画像フェッチャーを生成する。
func NewFetcher(guard security.SSRFGuardService, timeout time.Duration, maxSize int64) *fetcher {
	return &fetcher{
		client:  guard.NewSafeClient(timeout),
		guard:   guard,
		maxSize: maxSize,
	}
}

// Fetch は外部URLから画像を取得する。
func (f *fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	// DNS解決前の静的チェック。解決後のIPはクライアント側Dialerが検証する。
	if err := f.guard.ValidateURL(rawURL); err != nil {
		return nil, "", fmt.Errorf("unsafe image URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	contentType := parseContentType(resp.Header.Get("Content-Type"))
	if !allowedContentTypes[contentType] {
		return nil, "", fmt.Errorf("unsupported image content type: %q", contentType)
	}

	// 上限+1バイトまで読み、超過を検知する
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, "", fmt.Errorf("image exceeds size limit of %d bytes", f.maxSize)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image body is empty")
	}

	return data, contentType, nil
}

// parseContentType はContent-Typeヘッダからメディアタイプ部分を取り出す。
func parseContentType(header string) string {
	mediaType, _, found := strings.Cut(header, ";")
	if !found {
		mediaType = header
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
