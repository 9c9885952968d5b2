package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"mediaworker/models"
)

func inputBag(extra map[string]any) models.ParameterBag {
	bag := models.ParameterBag{
		models.InputFileKey: map[string]any{"url": "https://media.example.com/in/sample.mov"},
	}
	for k, v := range extra {
		bag[k] = v
	}
	return bag
}

func TestBuildDefaults(t *testing.T) {
	tests := []struct {
		name string
		op   models.Operation
		want Spec
	}{
		{
			name: "extract audio",
			op:   models.OperationExtractAudio,
			want: Spec{
				Operation: models.OperationExtractAudio,
				Format:    "flac",
				Extension: "flac",
				NoVideo:   true,
				Sink:      SinkDirect,
			},
		},
		{
			name: "extract thumbnail",
			op:   models.OperationExtractThumbnail,
			want: Spec{
				Operation: models.OperationExtractThumbnail,
				Format:    "mjpeg",
				Extension: "jpg",
				Seek:      "1",
				Frames:    1,
				NoAudio:   true,
				Sink:      SinkDirect,
			},
		},
		{
			name: "transcode",
			op:   models.OperationTranscode,
			want: Spec{
				Operation:     models.OperationTranscode,
				Format:        "mp4",
				Extension:     "mp4",
				VideoCodec:    "libx264",
				AudioCodec:    "aac",
				FormatOptions: []string{"-movflags", "+faststart"},
				Sink:          SinkStaged,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.op, inputBag(nil), Options{AllowStaging: true})
			if err != nil {
				t.Fatalf("Build returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Build() = %+v, want %+v", got, tt.want)
			}

			again, _ := Build(tt.op, inputBag(nil), Options{AllowStaging: true})
			if !reflect.DeepEqual(got, again) {
				t.Errorf("Build is not deterministic: %+v vs %+v", got, again)
			}
		})
	}
}

func TestBuildThumbnailGeometry(t *testing.T) {
	bag := inputBag(map[string]any{
		"width":       320,
		"aspectRatio": "16:9",
		"autoPadding": true,
	})

	spec, err := Build(models.OperationExtractThumbnail, bag, Options{AllowStaging: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if spec.Width != 320 {
		t.Errorf("Expected width 320, got %d", spec.Width)
	}
	if spec.Height != 0 {
		t.Errorf("Expected height to be left to the engine, got %d", spec.Height)
	}
	if spec.AspectRatio != "16:9" {
		t.Errorf("Expected aspect ratio 16:9, got %q", spec.AspectRatio)
	}
	if !spec.AutoPad {
		t.Error("Expected autoPad to be set")
	}
	if spec.Frames != 1 || spec.Format != "mjpeg" {
		t.Errorf("Expected a single mjpeg frame, got frames=%d format=%s", spec.Frames, spec.Format)
	}
	if spec.Seek != "1" {
		t.Errorf("Expected default seek 1, got %q", spec.Seek)
	}
	if spec.Sink != SinkDirect {
		t.Errorf("Expected direct sink for thumbnails, got %s", spec.Sink)
	}
}

func TestBuildTranscodeSinkSelection(t *testing.T) {
	tests := []struct {
		format       string
		allowStaging bool
		wantSink     SinkMode
		wantOptions  []string
		wantExt      string
	}{
		{"mp4", true, SinkStaged, []string{"-movflags", "+faststart"}, "mp4"},
		{"mov", true, SinkStaged, []string{"-movflags", "+faststart"}, "mov"},
		{"mp4", false, SinkDirect, []string{"-movflags", "frag_keyframe+empty_moov"}, "mp4"},
		{"webm", true, SinkDirect, nil, "webm"},
		{"mkv", true, SinkDirect, nil, "mkv"},
		{"mpegts", false, SinkDirect, nil, "ts"},
	}

	for _, tt := range tests {
		spec, err := Build(models.OperationTranscode, inputBag(map[string]any{"format": tt.format}), Options{AllowStaging: tt.allowStaging})
		if err != nil {
			t.Fatalf("format %s: unexpected error: %v", tt.format, err)
		}
		if spec.Sink != tt.wantSink {
			t.Errorf("format %s staging=%v: expected sink %s, got %s", tt.format, tt.allowStaging, tt.wantSink, spec.Sink)
		}
		if !reflect.DeepEqual(spec.FormatOptions, tt.wantOptions) {
			t.Errorf("format %s staging=%v: expected options %v, got %v", tt.format, tt.allowStaging, tt.wantOptions, spec.FormatOptions)
		}
		if spec.Extension != tt.wantExt {
			t.Errorf("format %s: expected extension %s, got %s", tt.format, tt.wantExt, spec.Extension)
		}
	}
}

func TestBuildTranscodeParameters(t *testing.T) {
	bag := inputBag(map[string]any{
		"videoCodec":   "libx265",
		"audioCodec":   "libopus",
		"videoBitRate": 2500,
		"audioBitrate": "128k",
		"width":        1280.0, // numbers decoded from JSON arrive as float64
		"height":       720,
	})

	spec, err := Build(models.OperationTranscode, bag, Options{AllowStaging: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if spec.VideoCodec != "libx265" || spec.AudioCodec != "libopus" {
		t.Errorf("Unexpected codecs %s/%s", spec.VideoCodec, spec.AudioCodec)
	}
	if spec.VideoBitrate != "2500k" {
		t.Errorf("Expected video bitrate 2500k, got %q", spec.VideoBitrate)
	}
	if spec.AudioBitrate != "128k" {
		t.Errorf("Expected audio bitrate 128k, got %q", spec.AudioBitrate)
	}
	if spec.Width != 1280 || spec.Height != 720 {
		t.Errorf("Expected 1280x720, got %dx%d", spec.Width, spec.Height)
	}
}

func TestBuildAudioOutputFormatAlias(t *testing.T) {
	spec, err := Build(models.OperationExtractAudio, inputBag(map[string]any{"outputFormat": "mp3", "audioCodec": "libmp3lame"}), Options{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if spec.Format != "mp3" || spec.Extension != "mp3" {
		t.Errorf("Expected mp3 output, got format=%s ext=%s", spec.Format, spec.Extension)
	}
	if spec.AudioCodec != "libmp3lame" {
		t.Errorf("Expected audio codec passthrough, got %q", spec.AudioCodec)
	}
}

func TestBuildRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		op   models.Operation
		bag  map[string]any
	}{
		{"unknown field", models.OperationTranscode, map[string]any{"crf": 23}},
		{"mistyped width", models.OperationExtractThumbnail, map[string]any{"width": "320"}},
		{"fractional width", models.OperationTranscode, map[string]any{"width": 320.5}},
		{"negative height", models.OperationTranscode, map[string]any{"height": -2}},
		{"mistyped autoPadding", models.OperationExtractThumbnail, map[string]any{"autoPadding": "yes"}},
		{"unsupported format", models.OperationTranscode, map[string]any{"format": "gif"}},
		{"audio format for video", models.OperationTranscode, map[string]any{"format": "flac"}},
		{"video format for audio", models.OperationExtractAudio, map[string]any{"format": "mp4"}},
		{"option injection", models.OperationTranscode, map[string]any{"videoCodec": "-f"}},
		{"bad bitrate", models.OperationTranscode, map[string]any{"videoBitrate": "fast"}},
		{"bad position", models.OperationExtractThumbnail, map[string]any{"position": "soon"}},
		{"bad aspect", models.OperationExtractThumbnail, map[string]any{"aspectRatio": "wide"}},
		{"conflicting aliases", models.OperationExtractAudio, map[string]any{"format": "flac", "outputFormat": "mp3"}},
		{"thumbnail format override", models.OperationExtractThumbnail, map[string]any{"format": "png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.op, inputBag(tt.bag), Options{AllowStaging: true})
			if !errors.Is(err, models.ErrInvalidParameters) {
				t.Errorf("Expected ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestBuildUnknownOperation(t *testing.T) {
	_, err := Build("resize", inputBag(nil), Options{})
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("Expected ErrInvalidParameters, got %v", err)
	}
}

func TestParseAspect(t *testing.T) {
	tests := map[string]float64{
		"16:9": 16.0 / 9.0,
		"4/3":  4.0 / 3.0,
		"2.35": 2.35,
	}
	for in, want := range tests {
		got, err := ParseAspect(in)
		if err != nil {
			t.Errorf("ParseAspect(%q) returned error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseAspect(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseAspect("0:9"); err == nil {
		t.Error("Expected error for zero width ratio")
	}
}
