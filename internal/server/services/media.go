package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/inkwell-blog/inkwell/internal/common"
	sc "github.com/inkwell-blog/inkwell/internal/server/config"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
)

var ErrUnsupportedMediaType = errors.New("unsupported cover image type")

const coverUploadExpiry = 15 * time.Minute

var coverExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

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
)

// CoverUpload tells the browser where to PUT a cover image and what URL
// to store in the post afterwards.
type CoverUpload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	Expires   time.Time `json:"expires"`
}

// MediaService hands out presigned S3 uploads for post cover images.
type MediaService struct {
	policy policy.Policy
	config *sc.Config
	now    func() time.Time
}

func NewMediaService(p policy.Policy, cfg *sc.Config) *MediaService {
	return &MediaService{policy: p, config: cfg, now: time.Now}
}

func (s *MediaService) coverKey(ext string) string {
	d := s.now().UTC()
	return fmt.Sprintf("covers/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *MediaService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
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

// PresignCoverUpload is admin only, like creating a post.
func (s *MediaService) PresignCoverUpload(ctx context.Context, actor policy.Actor, contentType string) (*CoverUpload, error) {
	if !s.policy.CanCreatePost(actor) {
		return nil, common.ErrForbidden
	}

	ext, ok := coverExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedMediaType
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error configuring storage: %w", err)
	}

	bucket := s.config.S3Bucket
	key := s.coverKey(ext)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(coverUploadExpiry))
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	return &CoverUpload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: strings.TrimSuffix(s.config.S3PublicBaseURL, "/") + "/" + key,
		Expires:   s.now().Add(coverUploadExpiry),
	}, nil
}
