// Package objectstore загружает пользовательские файлы (аватары) в S3-совместимое хранилище.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/cortex/internal/config"
)

const avatarPrefix = "avatars"

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader кладёт объекты в бакет и возвращает их публичный URL.
type Uploader struct {
	cfg    config.ObjectStorage
	client objectPutter
}

// NewUploader создаёт клиент S3 со статическими ключами доступа.
func NewUploader(cfg config.ObjectStorage) (*Uploader, error) {
	const op = "objectstore.NewUploader"
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("s3 bucket is required"))
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("s3 credentials are required"))
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("s3 public base url is required"))
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &Uploader{cfg: cfg, client: s3.New(options)}, nil
}

// UploadAvatar сохраняет аватар аккаунта под новым ключом.
func (u *Uploader) UploadAvatar(ctx context.Context, accountID int64, data []byte, contentType string) (string, error) {
	const op = "objectstore.UploadAvatar"
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", op, errors.New("no data to upload"))
	}

	key := path.Join(avatarPrefix, strconv.FormatInt(accountID, 10), uuid.NewString()+ExtensionFromContentType(contentType))
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key, nil
}

// ExtensionFromContentType подбирает расширение файла по MIME-типу изображения.
func ExtensionFromContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
