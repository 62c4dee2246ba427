package util

import (
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	suffix string
	mul    int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize 将 "64MB"、"512KB"、"1GB"、"1024" 等大小字符串解析为字节数，无法解析时返回 defaultSize
func ParseSize(sizeStr string, defaultSize int64) int64 {
	s := strings.ToUpper(strings.TrimSpace(sizeStr))
	if s == "" {
		return defaultSize
	}

	var multiplier int64 = 1
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.mul
			s = strings.TrimSuffix(s, u.suffix)
			break
		}
	}

	size, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || size <= 0 {
		return defaultSize
	}
	return size * multiplier
}
