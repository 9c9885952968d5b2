package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediaworker/models"
)

type fakePresigner struct {
	err     error
	lastTTL time.Duration
}

func (p *fakePresigner) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	p.lastTTL = ttl
	if p.err != nil {
		return "", p.err
	}
	return "https://" + bucket + ".storage.example.com/" + key + "?X-Sig=abc", nil
}

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 123, time.FixedZone("CET", 3600))

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		input  string
		ext    string
		want   string
	}{
		{"plain", "", "https://media.example.com/in/sample.mov", "flac", "2024-03-09T13-05-07/sample.flac"},
		{"prefix", "outputs/", "https://media.example.com/in/sample.mov", "jpg", "outputs/2024-03-09T13-05-07/sample.jpg"},
		{"query ignored", "", "https://b.s3.amazonaws.com/a/clip.mp4?X-Amz-Signature=1", "mp4", "2024-03-09T13-05-07/clip.mp4"},
		{"percent decoded", "", "https://media.example.com/in/my%20clip.mkv", "webm", "2024-03-09T13-05-07/my clip.webm"},
		{"last extension only", "", "https://media.example.com/in/archive.tar.gz", "mp3", "2024-03-09T13-05-07/archive.tar.mp3"},
		{"no extension", "", "https://media.example.com/in/stream", "ts", "2024-03-09T13-05-07/stream.ts"},
		{"no path", "", "https://media.example.com", "flac", "2024-03-09T13-05-07/output.flac"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateKey(tt.prefix, tt.input, tt.ext, fixedTime); got != tt.want {
				t.Errorf("GenerateKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateKeyCollidesWithinSecond(t *testing.T) {
	a := GenerateKey("", "https://m.example.com/x.mov", "flac", fixedTime)
	b := GenerateKey("", "https://m.example.com/x.mov", "flac", fixedTime.Add(500*time.Millisecond))
	if a != b {
		t.Errorf("Expected same key within one second, got %q and %q", a, b)
	}
}

func TestResolve(t *testing.T) {
	p := &fakePresigner{}
	r := New(Config{Bucket: "media-out", Prefix: "jobs/"}, p)
	r.now = func() time.Time { return fixedTime }

	input := models.Locator{Bucket: "media-in", Key: "sample.mov", URL: "https://media.example.com/in/sample.mov"}
	loc, err := r.Resolve(context.Background(), input, "flac")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if loc.Bucket != "media-out" || loc.Key != "jobs/2024-03-09T13-05-07/sample.flac" {
		t.Errorf("Unexpected locator %+v", loc)
	}
	if loc.URL == "" {
		t.Error("Expected a retrieval url")
	}
	if p.lastTTL != DefaultURLTTL {
		t.Errorf("Expected default ttl %v, got %v", DefaultURLTTL, p.lastTTL)
	}
}

func TestTargetHasNoURL(t *testing.T) {
	r := New(Config{Bucket: "out", URLTTL: time.Hour}, &fakePresigner{})
	loc := r.Target(models.Locator{URL: "https://m.example.com/a.mov"}, "mp4")
	if loc.URL != "" {
		t.Errorf("Expected unsigned target, got url %q", loc.URL)
	}
}

func TestSignFailureIsStorageFailure(t *testing.T) {
	r := New(Config{Bucket: "out"}, &fakePresigner{err: errors.New("no credentials")})
	_, err := r.Sign(context.Background(), models.Locator{Bucket: "out", Key: "a.mp4"})
	if !errors.Is(err, models.ErrStorageFailure) {
		t.Errorf("Expected ErrStorageFailure, got %v", err)
	}
}
