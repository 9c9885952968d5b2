package encoder

import (
	"bytes"
	"regexp"
	"strconv"
	"time"
)

// Progress is one telemetry sample parsed from ffmpeg's stderr.
type Progress struct {
	Processed time.Duration
	Duration  time.Duration // 0 when the input duration is unknown
	Percent   float64       // -1 when the input duration is unknown
	Speed     string
}

var (
	durationRegex = regexp.MustCompile(`Duration: (\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	timeRegex     = regexp.MustCompile(`time=(-?\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	speedRegex    = regexp.MustCompile(`speed=\s*(\S+)`)
)

// progressTracker accumulates stderr lines into progress samples.
type progressTracker struct {
	duration time.Duration
	last     time.Duration
}

// observe parses a stderr line and reports whether it produced a progress sample.
func (t *progressTracker) observe(line string) (Progress, bool) {
	if t.duration == 0 {
		if m := durationRegex.FindStringSubmatch(line); m != nil {
			t.duration = clockToDuration(m[1], m[2], m[3])
			return Progress{}, false
		}
	}
	m := timeRegex.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	processed := clockToDuration(m[1], m[2], m[3])
	if processed < 0 {
		return Progress{}, false
	}
	t.last = processed

	p := Progress{Processed: processed, Duration: t.duration, Percent: -1}
	if t.duration > 0 {
		p.Percent = float64(processed) / float64(t.duration) * 100
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	if s := speedRegex.FindStringSubmatch(line); s != nil {
		p.Speed = s[1]
	}
	return p, true
}

func clockToDuration(h, m, s string) time.Duration {
	hours, _ := strconv.ParseFloat(h, 64)
	minutes, _ := strconv.ParseFloat(m, 64)
	seconds, _ := strconv.ParseFloat(s, 64)
	total := hours*3600 + minutes*60 + seconds
	return time.Duration(total * float64(time.Second))
}

// scanLines splits on either \n or \r; ffmpeg rewrites its stats line with \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ProgressSampler limits progress logging to meaningful steps.
type ProgressSampler struct {
	step float64
	next float64
}

// NewProgressSampler returns a sampler letting through one sample per step percent.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step}
}

// ShouldLog reports whether the sample crosses the next step boundary.
func (s *ProgressSampler) ShouldLog(p Progress) bool {
	if p.Percent < 0 || p.Percent < s.next {
		return false
	}
	for s.next <= p.Percent {
		s.next += s.step
	}
	return true
}
