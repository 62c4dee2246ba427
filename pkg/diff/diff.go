// Package diff rebases a note rewrite onto text that changed underneath it
// Package diff 将笔记改写结果变基到期间被修改过的文本上
package diff

import "github.com/sergi/go-diff/diffmatchpatch"

// Rebase applies the change base→ours onto current.
// When current equals base, ours is returned unchanged.
// ok is false when any hunk fails to apply; the caller should then keep current.
// Rebase 将 base→ours 的修改应用到 current 上，任一补丁失败时 ok 为 false
func Rebase(base, ours, current string) (merged string, ok bool) {
	if current == base {
		return ours, true
	}
	if ours == base {
		return current, true
	}

	dmp := diffmatchpatch.New()
	// 链接替换必须精确命中，不接受模糊匹配
	dmp.MatchThreshold = 0.2

	diffs := dmp.DiffMain(base, ours, false)
	patches := dmp.PatchMake(base, diffs)

	merged, applied := dmp.PatchApply(patches, current)
	for _, a := range applied {
		if !a {
			return current, false
		}
	}
	return merged, true
}
