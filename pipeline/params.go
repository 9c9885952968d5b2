package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mediaworker/models"
)

// job-level keys that live in the parameter bag but are not encode parameters
var reservedKeys = map[string]bool{
	models.InputFileKey: true,
}

var (
	bitratePattern   = regexp.MustCompile(`^\d+(\.\d+)?[kKmM]?$`)
	secondsPattern   = regexp.MustCompile(`^\d+(\.\d+)?$`)
	clockPattern     = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?(\.\d+)?$`)
	aspectPattern    = regexp.MustCompile(`^(\d+(\.\d+)?)[:/](\d+(\.\d+)?)$`)
	codecNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)
)

const maxDimension = 16384

// Bitrate is a bitrate accepted either as a number of kbit/s or as a string such as "1500k".
type Bitrate string

func (b *Bitrate) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if n <= 0 {
			return fmt.Errorf("bitrate %v must be positive", n)
		}
		*b = Bitrate(strconv.FormatFloat(n, 'f', -1, 64) + "k")
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("bitrate must be a number or a string, got %s", data)
	}
	s = strings.TrimSpace(s)
	if !bitratePattern.MatchString(s) {
		return fmt.Errorf("bitrate %q is not a valid bitrate", s)
	}
	*b = Bitrate(s)
	return nil
}

// Timecode is a seek position in seconds or as [HH:]MM:SS[.ms].
type Timecode string

func (t *Timecode) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			return fmt.Errorf("position %v must not be negative", n)
		}
		*t = Timecode(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("position must be a number or a string, got %s", data)
	}
	s = strings.TrimSpace(s)
	if !secondsPattern.MatchString(s) && !clockPattern.MatchString(s) {
		return fmt.Errorf("position %q is not a valid timecode", s)
	}
	*t = Timecode(s)
	return nil
}

// AspectRatio is a display aspect ratio given as "W:H" or as a number.
type AspectRatio string

func (a *AspectRatio) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if n <= 0 {
			return fmt.Errorf("aspectRatio %v must be positive", n)
		}
		*a = AspectRatio(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("aspectRatio must be a number or a string, got %s", data)
	}
	s = strings.TrimSpace(s)
	if _, err := ParseAspect(s); err != nil {
		return err
	}
	*a = AspectRatio(s)
	return nil
}

// ParseAspect returns the width/height ratio of "16:9", "16/9" or "1.777".
func ParseAspect(s string) (float64, error) {
	if m := aspectPattern.FindStringSubmatch(s); m != nil {
		w, _ := strconv.ParseFloat(m[1], 64)
		h, _ := strconv.ParseFloat(m[3], 64)
		if w <= 0 || h <= 0 {
			return 0, fmt.Errorf("aspectRatio %q must be positive", s)
		}
		return w / h, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("aspectRatio %q is not a valid ratio", s)
	}
	return v, nil
}

type geometryParams struct {
	Width       *int         `json:"width"`
	Height      *int         `json:"height"`
	AspectRatio *AspectRatio `json:"aspectRatio"`
	AutoPadding *bool        `json:"autoPadding"`
	AutoPad     *bool        `json:"autoPad"`
}

type audioParams struct {
	Format       *string  `json:"format"`
	OutputFormat *string  `json:"outputFormat"`
	AudioCodec   *string  `json:"audioCodec"`
	AudioBitrate *Bitrate `json:"audioBitrate"`
	AudioBitRate *Bitrate `json:"audioBitRate"`
}

type thumbnailParams struct {
	geometryParams
	Position *Timecode `json:"position"`
}

type transcodeParams struct {
	geometryParams
	Format       *string  `json:"format"`
	VideoCodec   *string  `json:"videoCodec"`
	AudioCodec   *string  `json:"audioCodec"`
	VideoBitrate *Bitrate `json:"videoBitrate"`
	VideoBitRate *Bitrate `json:"videoBitRate"`
	AudioBitrate *Bitrate `json:"audioBitrate"`
	AudioBitRate *Bitrate `json:"audioBitRate"`
}

// decodeParams strictly decodes the bag into dst: unknown and mistyped fields are rejected.
func decodeParams(bag models.ParameterBag, dst any) error {
	filtered := make(map[string]any, len(bag))
	for k, v := range bag {
		if reservedKeys[k] {
			continue
		}
		filtered[k] = v
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidParameters, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidParameters, err)
	}
	return nil
}

// pick resolves a field that may be given under two names.
func pick[T comparable](name string, a, b *T) (*T, error) {
	if a != nil && b != nil && *a != *b {
		return nil, fmt.Errorf("%w: %s given twice with different values", models.ErrInvalidParameters, name)
	}
	if a != nil {
		return a, nil
	}
	return b, nil
}

func codecName(field string, v *string, def string) (string, error) {
	if v == nil {
		return def, nil
	}
	s := strings.TrimSpace(*v)
	if !codecNamePattern.MatchString(s) {
		return "", fmt.Errorf("%w: %s %q is not a codec name", models.ErrInvalidParameters, field, *v)
	}
	return s, nil
}

func dimension(field string, v *int) (int, error) {
	if v == nil {
		return 0, nil
	}
	if *v <= 0 || *v > maxDimension {
		return 0, fmt.Errorf("%w: %s must be between 1 and %d", models.ErrInvalidParameters, field, maxDimension)
	}
	return *v, nil
}
