package ideas

import (
	"strings"
	"unicode/utf8"
)

// UntitledIdea is used when no title line is found in the model answer.
const UntitledIdea = "未命名構想"

const maxTitleRunes = 200

var titleLabels = []string{"點子名稱", "名稱", "Title", "Name"}

// ParseTitle returns the value of the first "label: value" line whose label is one of
// 點子名稱, 名稱, Title or Name, with either colon width. The label must start the
// line once markdown heading, emphasis and list markers are removed. It never fails.
func ParseTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if v := titleFromLine(line); v != "" {
			return v
		}
	}
	return UntitledIdea
}

func titleFromLine(line string) string {
	line = strings.TrimLeft(line, "#*-_ \t")
	for _, label := range titleLabels {
		if !strings.HasPrefix(line, label) {
			continue
		}
		rest := strings.TrimLeft(line[len(label):], " *_")
		switch {
		case strings.HasPrefix(rest, "："):
			rest = strings.TrimPrefix(rest, "：")
		case strings.HasPrefix(rest, ":"):
			rest = strings.TrimPrefix(rest, ":")
		default:
			continue
		}
		if v := cleanTitle(rest); v != "" {
			return v
		}
	}
	return ""
}

func cleanTitle(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "*#`_ ")
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{"[", "]"}, {"【", "】"}, {"「", "」"}, {"《", "》"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			s = strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	if utf8.RuneCountInString(s) > maxTitleRunes {
		s = string([]rune(s)[:maxTitleRunes])
	}
	return s
}
