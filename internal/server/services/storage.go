package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/common"
	sc "github.com/dmitrijs2005/dealflow/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

var signatureContentTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/svg+xml": ".svg",
}

// UploadTicket tells the client where to PUT a signature image and which
// key to reference in the sign request afterwards.
type UploadTicket struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// StorageService hands out presigned S3 URLs for signature images.
type StorageService struct {
	config *sc.Config
	now    func() time.Time
}

func NewStorageService(config *sc.Config) *StorageService {
	return &StorageService{config: config, now: time.Now}
}

func signaturePrefix(uid string) string {
	return "signatures/" + uid + "/"
}

func (s *StorageService) newStorageKey(uid, ext string) string {
	d := s.now().UTC()
	return fmt.Sprintf("%s%d/%02d/%02d/%v%s", signaturePrefix(uid), d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *StorageService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// SignatureUploadURL presigns a PUT for a new signature image owned by uid.
func (s *StorageService) SignatureUploadURL(ctx context.Context, uid, contentType string) (*UploadTicket, error) {
	ext, ok := signatureContentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", common.ErrValidation, contentType)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := s.newStorageKey(uid, ext)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.config.PresignValidityDuration))
	if err != nil {
		return nil, err
	}

	return &UploadTicket{Key: key, URL: req.URL}, nil
}

// DownloadURL presigns a GET for a signature image. Only keys under the
// caller's own prefix are served.
func (s *StorageService) DownloadURL(ctx context.Context, uid, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: key is required", common.ErrValidation)
	}
	if !strings.HasPrefix(key, signaturePrefix(uid)) || strings.Contains(key, "..") {
		return "", common.ErrorUnauthorized
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.PresignValidityDuration))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
