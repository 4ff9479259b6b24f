package source

import (
	"strconv"
	"strings"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
)

// ParseCaps reads a GStreamer caps string such as
//
//	video/x-raw, format=(string)RGB, width=(int)640, height=(int)480, framerate=(fraction)30/1
//
// Caps with several structures, value lists or ranges are reported as not
// fixed. Fields that are missing or not a single value are left zero.
func ParseCaps(s string) frame.Caps {
	s = strings.TrimSpace(s)
	caps := frame.Caps{Fixed: isFixed(s)}
	if s == "" {
		return caps
	}

	// only the first structure describes the stream
	first, _, _ := strings.Cut(s, ";")
	fields := splitTopLevel(first, ',')
	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok {
			continue
		}
		value = stripType(strings.TrimSpace(value))
		switch strings.TrimSpace(key) {
		case "width":
			caps.Width = atoi(value)
		case "height":
			caps.Height = atoi(value)
		case "format":
			if !strings.ContainsAny(value, "{[") {
				caps.Format = strings.Trim(value, `"`)
			}
		}
	}
	return caps
}

func isFixed(s string) bool {
	switch s {
	case "", "ANY", "EMPTY", "NONE":
		return false
	}
	if strings.Contains(strings.TrimSuffix(s, ";"), ";") {
		return false
	}
	return !strings.ContainsAny(s, "{[")
}

// stripType drops a leading "(type)" annotation.
func stripType(value string) string {
	if strings.HasPrefix(value, "(") {
		if i := strings.Index(value, ")"); i >= 0 {
			return strings.TrimSpace(value[i+1:])
		}
	}
	return value
}

func atoi(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

// splitTopLevel splits on sep outside of {} and [] groups.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[', '<':
			depth++
		case '}', ']', '>':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
