package encoder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"mediaworker/models"
	"mediaworker/pipeline"
)

const fakeFFmpeg = `#!/bin/sh
echo "  Duration: 00:00:10.00, start: 0.000000, bitrate: 64 kb/s" >&2
printf 'size=1kB time=00:00:05.00 bitrate=1.6kbits/s speed=2.0x\r' >&2
printf 'size=2kB time=00:00:10.00 bitrate=1.6kbits/s speed=2.0x\n' >&2
for last; do :; done
if [ "$last" = "pipe:1" ]; then
	printf 'MEDIA'
else
	printf 'MEDIA' > "$last"
fi
`

const failingFFmpeg = `#!/bin/sh
echo "in.mov: Invalid data found when processing input" >&2
exit 1
`

const slowFFmpeg = `#!/bin/sh
exec sleep 30
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatalf("Failed to write fake ffmpeg: %v", err)
	}
	return path
}

func audioSpec() pipeline.Spec {
	return pipeline.Spec{Operation: models.OperationExtractAudio, Format: "flac", Extension: "flac", NoVideo: true}
}

func testInput() models.Locator {
	return models.Locator{Bucket: "in", Key: "sample.mov", URL: testInputURL}
}

func TestExecutorStreamsToWriter(t *testing.T) {
	exec := NewExecutor(writeScript(t, fakeFFmpeg))
	if err := exec.Check(); err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	var out bytes.Buffer
	var samples []Progress
	res, err := exec.Run(context.Background(), Request{
		Spec:       audioSpec(),
		Input:      testInput(),
		Output:     Destination{Writer: &out},
		OnProgress: func(p Progress) { samples = append(samples, p) },
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.String() != "MEDIA" {
		t.Errorf("Expected streamed output MEDIA, got %q", out.String())
	}
	if res.InputDuration != 10*time.Second {
		t.Errorf("Expected input duration 10s, got %v", res.InputDuration)
	}
	if res.Processed != 10*time.Second {
		t.Errorf("Expected 10s processed, got %v", res.Processed)
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 progress samples, got %d", len(samples))
	}
	if samples[0].Percent != 50 || samples[1].Percent != 100 {
		t.Errorf("Unexpected progress percentages %v, %v", samples[0].Percent, samples[1].Percent)
	}
}

func TestExecutorWritesToPath(t *testing.T) {
	exec := NewExecutor(writeScript(t, fakeFFmpeg))
	dst := filepath.Join(t.TempDir(), "out.flac")

	if _, err := exec.Run(context.Background(), Request{
		Spec:   audioSpec(),
		Input:  testInput(),
		Output: Destination{Path: dst},
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if string(data) != "MEDIA" {
		t.Errorf("Expected MEDIA in output file, got %q", data)
	}
}

func TestExecutorReportsEngineFailure(t *testing.T) {
	exec := NewExecutor(writeScript(t, failingFFmpeg))

	var out bytes.Buffer
	_, err := exec.Run(context.Background(), Request{
		Spec:   audioSpec(),
		Input:  testInput(),
		Output: Destination{Writer: &out},
	})
	if !errors.Is(err, models.ErrEngineFailure) {
		t.Fatalf("Expected ErrEngineFailure, got %v", err)
	}
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Expected *EngineError, got %T", err)
	}
	if engineErr.ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", engineErr.ExitCode)
	}
	if !strings.Contains(engineErr.Stderr, "Invalid data found") {
		t.Errorf("Expected stderr to be captured, got %q", engineErr.Stderr)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("Expected last stderr line in error message, got %q", err.Error())
	}
	if models.IsRetryable(err) != true {
		t.Error("Expected engine failures to be retryable")
	}
}

func TestExecutorRejectsInvalidInputWithoutSpawning(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spawned")
	exec := NewExecutor(writeScript(t, "#!/bin/sh\ntouch "+marker+"\n"))

	var out bytes.Buffer
	_, err := exec.Run(context.Background(), Request{
		Spec:   audioSpec(),
		Input:  models.Locator{Bucket: "in", Key: "sample.mov"},
		Output: Destination{Writer: &out},
	})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Error("Expected the engine not to be started for invalid input")
	}
}

func TestExecutorCancellation(t *testing.T) {
	exec := NewExecutor(writeScript(t, slowFFmpeg))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	var out bytes.Buffer
	start := time.Now()
	_, err := exec.Run(ctx, Request{
		Spec:   audioSpec(),
		Input:  testInput(),
		Output: Destination{Writer: &out},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, models.ErrEngineFailure) {
		t.Errorf("Expected cancellation to surface as an engine failure, got %v", err)
	}
	if time.Since(start) > 15*time.Second {
		t.Error("Expected the engine to be killed promptly")
	}
}

func TestExecutorCheckMissingBinary(t *testing.T) {
	exec := NewExecutor(filepath.Join(t.TempDir(), "no-such-ffmpeg"))
	if err := exec.Check(); err == nil {
		t.Error("Expected Check to fail for a missing binary")
	}
}
