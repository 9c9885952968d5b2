package pipeline

import (
	"fmt"

	"mediaworker/models"
)

// SinkMode selects how engine output reaches the object store.
type SinkMode int

const (
	// SinkDirect relays engine output through a pipe straight into the upload.
	SinkDirect SinkMode = iota
	// SinkStaged lets the engine finish into a local file that is uploaded afterwards.
	SinkStaged
)

func (m SinkMode) String() string {
	switch m {
	case SinkDirect:
		return "direct"
	case SinkStaged:
		return "staged"
	default:
		return fmt.Sprintf("SinkMode(%d)", int(m))
	}
}

// Flag sets for indexed containers.
var (
	fastStartOptions  = []string{"-movflags", "+faststart"}
	streamableOptions = []string{"-movflags", "frag_keyframe+empty_moov"}
)

// Default encode settings.
const (
	DefaultAudioFormat     = "flac"
	DefaultThumbnailFormat = "mjpeg"
	DefaultThumbnailSeek   = "1"
	DefaultVideoCodec      = "libx264"
	DefaultAudioCodec      = "aac"
	DefaultVideoFormat     = "mp4"
)

// Spec is the resolved encode description of one invocation. It is not
// modified after Build returns.
type Spec struct {
	Operation     models.Operation
	Format        string // engine muxer name
	Extension     string // output key extension
	VideoCodec    string
	AudioCodec    string
	VideoBitrate  string
	AudioBitrate  string
	Width         int // 0 when not requested
	Height        int
	AspectRatio   string
	AutoPad       bool
	Seek          string // input seek offset, thumbnails only
	Frames        int    // 0 means all frames
	NoVideo       bool
	NoAudio       bool
	FormatOptions []string
	Sink          SinkMode
}

// Options carries worker level choices that affect the built Spec.
type Options struct {
	// AllowStaging permits the staged-file sink. Without it indexed containers
	// are written fragmented so they can be streamed.
	AllowStaging bool
}

// Build maps a job parameter bag onto a Spec for the given operation.
func Build(op models.Operation, bag models.ParameterBag, opts Options) (Spec, error) {
	var (
		spec Spec
		err  error
	)
	switch op {
	case models.OperationExtractAudio:
		spec, err = buildAudio(bag)
	case models.OperationExtractThumbnail:
		spec, err = buildThumbnail(bag)
	case models.OperationTranscode:
		spec, err = buildTranscode(bag)
	default:
		return Spec{}, fmt.Errorf("%w: unknown operation %q", models.ErrInvalidParameters, op)
	}
	if err != nil {
		return Spec{}, err
	}
	spec.Operation = op
	selectSink(&spec, opts)
	return spec, nil
}

// selectSink applies the single sink rule: indexed containers go through a
// staged file with fast start when staging is allowed, everything else streams.
func selectSink(spec *Spec, opts Options) {
	info := formats[spec.Format]
	switch {
	case info.indexed && opts.AllowStaging:
		spec.Sink = SinkStaged
		spec.FormatOptions = append([]string(nil), fastStartOptions...)
	case info.indexed:
		spec.Sink = SinkDirect
		spec.FormatOptions = append([]string(nil), streamableOptions...)
	default:
		spec.Sink = SinkDirect
	}
}

func buildAudio(bag models.ParameterBag) (Spec, error) {
	var p audioParams
	if err := decodeParams(bag, &p); err != nil {
		return Spec{}, err
	}
	format, err := pick("format", p.Format, p.OutputFormat)
	if err != nil {
		return Spec{}, err
	}
	name := DefaultAudioFormat
	if format != nil {
		name = *format
	}
	info, ok := lookupFormat(name, audioFormats)
	if !ok {
		return Spec{}, fmt.Errorf("%w: unsupported audio format %q", models.ErrInvalidParameters, name)
	}
	codec, err := codecName("audioCodec", p.AudioCodec, "")
	if err != nil {
		return Spec{}, err
	}
	bitrate, err := pick("audioBitrate", p.AudioBitrate, p.AudioBitRate)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		Format:     info.muxer,
		Extension:  info.ext,
		AudioCodec: codec,
		NoVideo:    true,
	}
	if bitrate != nil {
		spec.AudioBitrate = string(*bitrate)
	}
	return spec, nil
}

func buildThumbnail(bag models.ParameterBag) (Spec, error) {
	var p thumbnailParams
	if err := decodeParams(bag, &p); err != nil {
		return Spec{}, err
	}
	info := formats[DefaultThumbnailFormat]
	spec := Spec{
		Format:    info.muxer,
		Extension: info.ext,
		Seek:      DefaultThumbnailSeek,
		Frames:    1,
		NoAudio:   true,
	}
	if p.Position != nil {
		spec.Seek = string(*p.Position)
	}
	if err := applyGeometry(&spec, p.geometryParams); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func buildTranscode(bag models.ParameterBag) (Spec, error) {
	var p transcodeParams
	if err := decodeParams(bag, &p); err != nil {
		return Spec{}, err
	}
	name := DefaultVideoFormat
	if p.Format != nil {
		name = *p.Format
	}
	info, ok := lookupFormat(name, videoFormats)
	if !ok {
		return Spec{}, fmt.Errorf("%w: unsupported format %q", models.ErrInvalidParameters, name)
	}
	videoCodec, err := codecName("videoCodec", p.VideoCodec, DefaultVideoCodec)
	if err != nil {
		return Spec{}, err
	}
	audioCodec, err := codecName("audioCodec", p.AudioCodec, DefaultAudioCodec)
	if err != nil {
		return Spec{}, err
	}
	videoBitrate, err := pick("videoBitrate", p.VideoBitrate, p.VideoBitRate)
	if err != nil {
		return Spec{}, err
	}
	audioBitrate, err := pick("audioBitrate", p.AudioBitrate, p.AudioBitRate)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		Format:     info.muxer,
		Extension:  info.ext,
		VideoCodec: videoCodec,
		AudioCodec: audioCodec,
	}
	if videoBitrate != nil {
		spec.VideoBitrate = string(*videoBitrate)
	}
	if audioBitrate != nil {
		spec.AudioBitrate = string(*audioBitrate)
	}
	if err := applyGeometry(&spec, p.geometryParams); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func applyGeometry(spec *Spec, g geometryParams) error {
	var err error
	if spec.Width, err = dimension("width", g.Width); err != nil {
		return err
	}
	if spec.Height, err = dimension("height", g.Height); err != nil {
		return err
	}
	if g.AspectRatio != nil {
		spec.AspectRatio = string(*g.AspectRatio)
	}
	autoPad, err := pick("autoPadding", g.AutoPadding, g.AutoPad)
	if err != nil {
		return err
	}
	spec.AutoPad = autoPad != nil && *autoPad
	return nil
}
