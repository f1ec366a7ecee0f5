package object

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

func NewClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

// ParseURI splits "minio://bucket/path/to/key" into bucket and key.
func ParseURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "minio://")
	if !ok {
		return "", "", errors.Errorf("not a minio uri: %q", uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", errors.Errorf("minio uri needs bucket and key: %q", uri)
	}
	return bucket, strings.Trim(key, "/"), nil
}

func ReadObject(ctx context.Context, client *minio.Client, bucket, key string) ([]byte, error) {
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get object %s/%s", bucket, key)
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrapf(err, "read object %s/%s", bucket, key)
	}
	return b, nil
}
