package service

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"chatbot_server/server/common/infra/object"
	"chatbot_server/server/recommend/domain"
)

const SourceBuiltin = "builtin"

// ObjectReader fetches an object body from the object store.
type ObjectReader func(ctx context.Context, bucket, key string) ([]byte, error)

type listingsFile struct {
	Listings []string `yaml:"listings"`
}

// LoadListings resolves a listings source: "" or "builtin" for the default
// catalogue, "minio://bucket/key" for an object, anything else is a file
// path. Files and objects hold YAML or JSON, either a bare list of strings or
// a mapping with a "listings" list.
func LoadListings(ctx context.Context, source string, objects ObjectReader) ([]string, error) {
	source = strings.TrimSpace(source)
	var (
		raw []byte
		err error
	)
	switch {
	case source == "" || source == SourceBuiltin:
		return append([]string(nil), domain.DefaultListings...), nil
	case strings.HasPrefix(source, "minio://"):
		if objects == nil {
			return nil, errors.Errorf("listings source %s needs an object store", source)
		}
		bucket, key, perr := object.ParseURI(source)
		if perr != nil {
			return nil, perr
		}
		raw, err = objects(ctx, bucket, key)
	default:
		raw, err = os.ReadFile(source)
		err = errors.Wrapf(err, "read listings file %s", source)
	}
	if err != nil {
		return nil, err
	}
	return ParseListings(raw)
}

func ParseListings(raw []byte) ([]string, error) {
	var items []string
	if err := yaml.Unmarshal(raw, &items); err != nil {
		var file listingsFile
		if ferr := yaml.Unmarshal(raw, &file); ferr != nil {
			return nil, errors.Wrap(ferr, "decode listings")
		}
		items = file.Listings
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("listings source is empty")
	}
	return out, nil
}
