package pipeline

import "strings"

type formatInfo struct {
	muxer string
	ext   string
	// indexed formats carry a moov index atom that must be finalized on a
	// seekable destination unless fragmented output is requested
	indexed bool
}

var formats = map[string]formatInfo{
	"flac":     {muxer: "flac", ext: "flac"},
	"mp3":      {muxer: "mp3", ext: "mp3"},
	"wav":      {muxer: "wav", ext: "wav"},
	"ogg":      {muxer: "ogg", ext: "ogg"},
	"opus":     {muxer: "opus", ext: "opus"},
	"adts":     {muxer: "adts", ext: "aac"},
	"aac":      {muxer: "adts", ext: "aac"},
	"ipod":     {muxer: "ipod", ext: "m4a", indexed: true},
	"m4a":      {muxer: "ipod", ext: "m4a", indexed: true},
	"mjpeg":    {muxer: "mjpeg", ext: "jpg"},
	"mp4":      {muxer: "mp4", ext: "mp4", indexed: true},
	"mov":      {muxer: "mov", ext: "mov", indexed: true},
	"3gp":      {muxer: "3gp", ext: "3gp", indexed: true},
	"matroska": {muxer: "matroska", ext: "mkv"},
	"mkv":      {muxer: "matroska", ext: "mkv"},
	"webm":     {muxer: "webm", ext: "webm"},
	"mpegts":   {muxer: "mpegts", ext: "ts"},
	"avi":      {muxer: "avi", ext: "avi"},
	"flv":      {muxer: "flv", ext: "flv"},
}

var audioFormats = map[string]bool{
	"flac": true, "mp3": true, "wav": true, "ogg": true, "opus": true,
	"adts": true, "aac": true, "ipod": true, "m4a": true,
}

var videoFormats = map[string]bool{
	"mp4": true, "mov": true, "3gp": true, "ipod": true, "matroska": true, "mkv": true,
	"webm": true, "mpegts": true, "avi": true, "flv": true,
}

func lookupFormat(name string, allowed map[string]bool) (formatInfo, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !allowed[name] {
		return formatInfo{}, false
	}
	info, ok := formats[name]
	return info, ok
}

// ExtensionFor returns the file extension used for a format name, or the name itself.
func ExtensionFor(format string) string {
	if info, ok := formats[strings.ToLower(format)]; ok {
		return info.ext
	}
	return format
}
