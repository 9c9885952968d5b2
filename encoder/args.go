package encoder

import (
	"fmt"
	"math"
	"strconv"

	"mediaworker/pipeline"
)

// BuildArgs renders a pipeline spec into an ffmpeg argument list reading
// inputURL and writing output (a path or "pipe:1").
func BuildArgs(spec pipeline.Spec, inputURL, output string) ([]string, error) {
	args := []string{"-hide_banner", "-nostdin", "-y"}

	// seeking on the input side avoids decoding everything before the offset
	if spec.Seek != "" {
		args = append(args, "-ss", spec.Seek)
	}
	args = append(args, "-i", inputURL)

	if spec.NoVideo {
		args = append(args, "-vn")
	} else if spec.VideoCodec != "" {
		args = append(args, "-c:v", spec.VideoCodec)
	}
	if spec.NoAudio {
		args = append(args, "-an")
	} else if spec.AudioCodec != "" {
		args = append(args, "-c:a", spec.AudioCodec)
	}
	if spec.VideoBitrate != "" && !spec.NoVideo {
		args = append(args, "-b:v", spec.VideoBitrate)
	}
	if spec.AudioBitrate != "" && !spec.NoAudio {
		args = append(args, "-b:a", spec.AudioBitrate)
	}

	if !spec.NoVideo {
		filter, aspectOnly, err := videoFilter(spec)
		if err != nil {
			return nil, err
		}
		if filter != "" {
			args = append(args, "-vf", filter)
		}
		if aspectOnly {
			args = append(args, "-aspect", spec.AspectRatio)
		}
	}

	if spec.Frames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(spec.Frames))
	}
	args = append(args, spec.FormatOptions...)
	args = append(args, "-f", spec.Format, output)
	return args, nil
}

// videoFilter returns the scale/pad filter chain for the pipeline spec. aspectOnly is
// set when only a display aspect ratio was requested.
func videoFilter(spec pipeline.Spec) (filter string, aspectOnly bool, err error) {
	w, h := spec.Width, spec.Height
	if w == 0 && h == 0 {
		return "", spec.AspectRatio != "", nil
	}

	if spec.AspectRatio != "" {
		ratio, err := pipeline.ParseAspect(spec.AspectRatio)
		if err != nil {
			return "", false, fmt.Errorf("aspect ratio: %w", err)
		}
		switch {
		case w > 0 && h == 0:
			h = even(float64(w) / ratio)
		case h > 0 && w == 0:
			w = even(float64(h) * ratio)
		}
	}

	// Padding needs a full output box. With one axis and no aspect ratio
	// AutoPad is ignored and only the scale is applied.
	switch {
	case w > 0 && h > 0 && spec.AutoPad:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease:force_divisible_by=2,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", w, h, w, h), false, nil
	case w > 0 && h > 0:
		return fmt.Sprintf("scale=%d:%d", w, h), false, nil
	case w > 0:
		return fmt.Sprintf("scale=%d:-2", w), false, nil
	default:
		return fmt.Sprintf("scale=-2:%d", h), false, nil
	}
}

func even(v float64) int {
	n := int(math.Round(v/2)) * 2
	if n < 2 {
		return 2
	}
	return n
}
