package textutil

import (
	"regexp"
	"strings"
)

var (
	seasonMarkerPattern  = regexp.MustCompile(`\s*(第一|第二|第三|第四|第五|第六|第七|第八|第九|第十)\s*季`)
	yearlyRunPattern     = regexp.MustCompile(`\s*年番\s*\d+\s*`)
	editionMarkerPattern = regexp.MustCompile(`\s*(剧场版|OVA|番外篇|特别篇)`)
	yearSuffixPattern    = regexp.MustCompile(`\d{4}年`)
	spaceRunPattern      = regexp.MustCompile(`\s+`)
)

// CleanTitle strips page decorations that media servers do not carry in the
// item name: season ordinals, yearly-run counters, edition tags, and "NNNN年"
// year suffixes. Remaining whitespace is collapsed.
func CleanTitle(title string) string {
	title = seasonMarkerPattern.ReplaceAllString(title, "")
	title = yearlyRunPattern.ReplaceAllString(title, "")
	title = editionMarkerPattern.ReplaceAllString(title, "")
	title = yearSuffixPattern.ReplaceAllString(title, "")
	title = spaceRunPattern.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}
