// Package image はイベント画像の保存と取り込みを提供する。
//
// アップロードされた画像（またはURL指定で取得した画像）をS3互換
// オブジェクトストレージに保存し、公開URLを返す。
package image

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/hitoshi/devent/internal/config"
)

// StorageService はイベント画像の保存機能のインターフェースを定義する。
type StorageService interface {
	// Store は画像データをオブジェクトストレージに保存し、公開URLを返す。
	// contentTypeはimage/png等のMIMEタイプ。
	Store(ctx context.Context, data io.Reader, size int64, contentType string) (string, error)
}

// s3Storage はStorageServiceのS3実装。
type s3Storage struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3Storage はS3バックエンドの画像ストレージを生成する。
// S3_ENDPOINTが設定されていればMinIO等のS3互換ストレージに接続し、
// アクセスキーが設定されていれば静的クレデンシャルを使用する
// （未設定ならSDKの標準のクレデンシャルチェーンに従う）。
func NewS3Storage(ctx context.Context, cfg *config.Config) (*s3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			// MinIO等はパススタイルのバケットアドレッシングを要求する
			o.UsePathStyle = true
		}
	})

	return &s3Storage{
		client:        client,
		bucket:        cfg.S3Bucket,
		publicBaseURL: publicBaseURL(cfg),
	}, nil
}

// publicBaseURL は保存した画像の公開URLの基点を返す。
// S3_PUBLIC_BASE_URLが明示されていればそれを、なければ
// エンドポイント（またはAWSの標準バケットURL）から導出する。
func publicBaseURL(cfg *config.Config) string {
	if cfg.S3PublicBaseURL != "" {
		return strings.TrimRight(cfg.S3PublicBaseURL, "/")
	}
	if cfg.S3Endpoint != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(cfg.S3Endpoint, "/"), cfg.S3Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
}

// storageKey は保存キーを生成する。日付で階層化し、UUIDで衝突を避ける。
func storageKey(contentType string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("events/%d/%02d/%s%s", now.Year(), now.Month(), uuid.New(), extensionFor(contentType))
}

// extensionFor はMIMEタイプに対応するファイル拡張子を返す。
func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// Store は画像データをS3に保存し、公開URLを返す。
func (s *s3Storage) Store(ctx context.Context, data io.Reader, size int64, contentType string) (string, error) {
	key := storageKey(contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to S3: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.publicBaseURL, key), nil
}
