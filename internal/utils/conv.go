package utils

import (
	"fmt"
	"strconv"
)

// StringToInt64 converts string to int64, returns def if error
func StringToInt64(s string, def int64) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return i
}

// TimeAgo 将秒数差格式化为 "3 hours ago" 这样的文本
func TimeAgo(ctime, now int64) string {
	seconds := now - ctime
	switch {
	case seconds <= 1:
		return "now"
	case seconds < 60:
		return fmt.Sprintf("%d seconds ago", seconds)
	case seconds < 3600:
		return plural(seconds/60, "minute") + " ago"
	case seconds < 86400:
		return plural(seconds/3600, "hour") + " ago"
	default:
		return plural(seconds/86400, "day") + " ago"
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
