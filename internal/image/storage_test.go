package image

import (
	"strings"
	"testing"

	"github.com/hitoshi/devent/internal/config"
)

// TestPublicBaseURL は公開URL基点の導出規則を検証する。
func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{
			name: "明示されたPublic Base URLが優先される",
			cfg: &config.Config{
				S3Bucket:        "devent-images",
				S3Endpoint:      "http://minio:9000",
				S3PublicBaseURL: "https://cdn.example.com/",
			},
			want: "https://cdn.example.com",
		},
		{
			name: "カスタムエンドポイントからの導出",
			cfg: &config.Config{
				S3Bucket:   "devent-images",
				S3Endpoint: "http://minio:9000",
			},
			want: "http://minio:9000/devent-images",
		},
		{
			name: "AWS標準バケットURLへのフォールバック",
			cfg: &config.Config{
				S3Bucket: "devent-images",
				S3Region: "ap-northeast-1",
			},
			want: "https://devent-images.s3.ap-northeast-1.amazonaws.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := publicBaseURL(tt.cfg); got != tt.want {
				t.Errorf("publicBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestStorageKey は保存キーの形式と一意性を検証する。
func TestStorageKey(t *testing.T) {
	key := storageKey("image/png")
	if !strings.HasPrefix(key, "events/") {
		t.Errorf("key = %q, want events/ prefix", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("key = %q, want .png suffix", key)
	}

	if storageKey("image/png") == storageKey("image/png") {
		t.Error("consecutive keys must not collide")
	}
}

// TestExtensionFor はMIMEタイプと拡張子の対応を検証する。
func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"image/gif", ".gif"},
		{"image/webp", ".webp"},
		{"application/octet-stream", ""},
	}

	for _, tt := range tests {
		if got := extensionFor(tt.contentType); got != tt.want {
			t.Errorf("extensionFor(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
