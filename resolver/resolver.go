// Package resolver derives output object keys and mints their retrieval URLs.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"mediaworker/models"
)

// DefaultURLTTL is how long an output URL stays valid.
const DefaultURLTTL = 12 * time.Hour

const keyTimeLayout = "2006-01-02T15-04-05"

// Presigner mints time-limited read URLs. writerbackends.ObjectStore satisfies it.
type Presigner interface {
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Config is the output location of a worker.
type Config struct {
	Bucket string
	Prefix string
	URLTTL time.Duration
}

type Resolver struct {
	cfg       Config
	presigner Presigner
	now       func() time.Time
}

func New(cfg Config, presigner Presigner) *Resolver {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultURLTTL
	}
	return &Resolver{cfg: cfg, presigner: presigner, now: time.Now}
}

// GenerateKey builds the output key for inputURL: the input basename without
// its extension, placed in a folder named after t (UTC, second precision).
// Two jobs on the same input within one second get the same key.
func GenerateKey(prefix, inputURL, ext string, t time.Time) string {
	p := inputURL
	if u, err := url.Parse(inputURL); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		name = ""
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" {
		name = "output"
	}
	return prefix + t.UTC().Format(keyTimeLayout) + "/" + name + "." + ext
}

// Target returns the unsigned output locator for input.
func (r *Resolver) Target(input models.Locator, ext string) models.Locator {
	return models.Locator{
		Bucket: r.cfg.Bucket,
		Key:    GenerateKey(r.cfg.Prefix, input.URL, ext, r.now()),
	}
}

// Sign returns loc with a freshly minted retrieval URL.
func (r *Resolver) Sign(ctx context.Context, loc models.Locator) (models.Locator, error) {
	u, err := r.presigner.PresignGet(ctx, loc.Bucket, loc.Key, r.cfg.URLTTL)
	if err != nil {
		return models.Locator{}, fmt.Errorf("%w: presign %s: %w", models.ErrStorageFailure, loc, err)
	}
	return loc.WithURL(u), nil
}

// Resolve is Target followed by Sign.
func (r *Resolver) Resolve(ctx context.Context, input models.Locator, ext string) (models.Locator, error) {
	return r.Sign(ctx, r.Target(input, ext))
}
