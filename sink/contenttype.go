package sink

import (
	"mime"
	"path"
	"strings"
)

var mediaTypes = map[string]string{
	".flac": "audio/flac",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".jpg":  "image/jpeg",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".ts":   "video/mp2t",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".3gp":  "video/3gpp",
}

// ContentType guesses the object content type from the key extension.
func ContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
