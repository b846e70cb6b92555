package pipeline

import (
	"fmt"
	"strings"
)

// buildFileName assembles the final document name. The period segment is
// omitted when no period could be resolved for a non-protected code.
func buildFileName(code, label, period string) string {
	label = sanitizeLabel(label)
	if period == "" {
		return fmt.Sprintf("%s_%s.pdf", code, label)
	}
	return fmt.Sprintf("%s_%s_%s.pdf", code, label, period)
}

func sanitizeLabel(label string) string {
	replacer := strings.NewReplacer(
		"/", "／",
		"\\", "＼",
		":", "：",
		" ", "",
		"\t", "",
	)
	label = replacer.Replace(strings.TrimSpace(label))
	if label == "" {
		label = "不明"
	}
	return label
}

// nameAllocator keeps final names unique within one run. The second unit
// resolving to the same name gets a numeric suffix before the extension.
type nameAllocator struct {
	used map[string]int
}

func newNameAllocator() *nameAllocator {
	return &nameAllocator{used: make(map[string]int)}
}

func (a *nameAllocator) allocate(name string) string {
	n := a.used[name]
	a.used[name] = n + 1
	if n == 0 {
		return name
	}

	ext := ""
	base := name
	if idx := strings.LastIndex(name, "."); idx > 0 {
		base, ext = name[:idx], name[idx:]
	}
	return fmt.Sprintf("%s_%d%s", base, n+1, ext)
}
