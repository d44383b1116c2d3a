package preview

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/oops"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// S3Store keeps preview bytes in an S3 bucket and hands out presigned GET URLs.
// Preview metadata is tracked in process so expired objects can be found again.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	maxSize int64
	now     func() time.Time

	mu    sync.Mutex
	index map[string]Preview
}

func NewS3Store(ctx context.Context, cfg config.S3Config, ttl time.Duration, maxSize int64) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, oops.New(err, "failed to load S3 config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		index:   make(map[string]Preview),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, u Upload) (Preview, error) {
	p, err := inspect(u, s.maxSize)
	if err != nil {
		return Preview{}, err
	}
	p.ID = uuid.New().String()
	p.ExpiresAt = s.now().Add(s.ttl)

	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &s.bucket,
			Key:         aws.String(p.ID),
			Body:        bytes.NewReader(u.Data),
			ContentType: aws.String(p.ContentType),
			Expires:     aws.Time(p.ExpiresAt),
		})
		return err
	}

	err = upload()
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) && apiError.ErrorCode() == "NoSuchBucket" {
			_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
				Bucket: &s.bucket,
			})
			if err != nil {
				return Preview{}, oops.New(err, "failed to create previews bucket")
			}

			err = upload()
			if err != nil {
				return Preview{}, oops.New(err, "failed to upload preview")
			}
		} else {
			return Preview{}, oops.New(err, "failed to upload preview")
		}
	}

	p.URL, err = s.presignGet(ctx, p)
	if err != nil {
		return Preview{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[p.ID] = p
	return p, nil
}

func (s *S3Store) Get(ctx context.Context, id string) (Preview, error) {
	p, err := s.live(id)
	if err != nil {
		return Preview{}, err
	}
	p.URL, err = s.presignGet(ctx, p)
	return p, err
}

func (s *S3Store) Open(ctx context.Context, id string) (io.ReadCloser, Preview, error) {
	p, err := s.live(id)
	if err != nil {
		return nil, Preview{}, err
	}

	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(id),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, Preview{}, ErrNotFound
		}
		return nil, Preview{}, oops.New(err, "failed to fetch preview %s", id)
	}
	return res.Body, p, nil
}

func (s *S3Store) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.index[id]
	delete(s.index, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(id),
	})
	if err != nil {
		return oops.New(err, "failed to delete preview %s", id)
	}
	return nil
}

func (s *S3Store) DeleteExpired(ctx context.Context) (int, error) {
	now := s.now()

	var expired []string
	s.mu.Lock()
	for id, p := range s.index {
		if !now.Before(p.ExpiresAt) {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range expired {
		if err := s.Revoke(ctx, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *S3Store) live(id string) (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.index[id]
	if !ok || !s.now().Before(p.ExpiresAt) {
		return Preview{}, ErrNotFound
	}
	return p, nil
}

func (s *S3Store) presignGet(ctx context.Context, p Preview) (string, error) {
	remaining := p.ExpiresAt.Sub(s.now())
	if remaining < time.Second {
		remaining = time.Second
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(p.ID),
	}, s3.WithPresignExpires(remaining))
	if err != nil {
		return "", oops.New(err, "failed to presign preview URL")
	}
	return req.URL, nil
}
