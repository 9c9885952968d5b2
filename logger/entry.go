package logger

import (
	"fmt"
	"strings"
)

// Entry is a logger bound to a fixed set of key=value fields.
// A nil *Entry logs through the package level logger without fields.
type Entry struct {
	fields string
}

// With returns an Entry carrying the given key/value pairs.
func With(kv ...interface{}) *Entry {
	return (&Entry{}).With(kv...)
}

// With returns a child Entry with additional fields.
func (e *Entry) With(kv ...interface{}) *Entry {
	var b strings.Builder
	if e != nil {
		b.WriteString(e.fields)
	}
	for i := 0; i < len(kv); i += 2 {
		var val interface{} = "(missing)"
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		s := fmt.Sprint(val)
		if strings.ContainsAny(s, " \t\"") {
			s = fmt.Sprintf("%q", s)
		}
		fmt.Fprintf(&b, "%v=%s", kv[i], s)
	}
	return &Entry{fields: b.String()}
}

func (e *Entry) format(msg string) string {
	if e == nil || e.fields == "" {
		return msg
	}
	return msg + " | " + e.fields
}

func (e *Entry) Debugf(format string, v ...interface{}) {
	output(DEBUG, 3, e.format(fmt.Sprintf(format, v...)))
}

func (e *Entry) Infof(format string, v ...interface{}) {
	output(INFO, 3, e.format(fmt.Sprintf(format, v...)))
}

func (e *Entry) Warnf(format string, v ...interface{}) {
	output(WARN, 3, e.format(fmt.Sprintf(format, v...)))
}

func (e *Entry) Errorf(format string, v ...interface{}) {
	output(ERROR, 3, e.format(fmt.Sprintf(format, v...)))
}
