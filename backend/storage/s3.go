package storage

import (
	"context"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3 stores files in an S3-compatible bucket (MinIO, AWS).
type S3 struct {
	cl     *minio.Client
	bucket string
	base   string
}

func NewS3(cfg S3Config) (*S3, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init s3 client")
	}
	return &S3{cl: cl, bucket: cfg.Bucket, base: objectBase(cfg.Endpoint, cfg.Bucket, cfg.UseSSL)}, nil
}

func (s *S3) Upload(ctx context.Context, localPath, name string) (string, error) {
	_, err := s.cl.FPutObject(ctx, s.bucket, name, localPath, minio.PutObjectOptions{
		ContentType: contentTypeOf(name),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put object %s", name)
	}
	return s.base + url.PathEscape(name), nil
}

func objectBase(endpoint, bucket string, useSSL bool) string {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint + "/" + bucket + "/"
}
