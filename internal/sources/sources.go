package sources

import "strings"

// Source is a feed endpoint the fetcher pulls from.
type Source struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	URL      string `yaml:"url" json:"url" validate:"required,url"`
	Category string `yaml:"category" json:"category"`
}

const (
	CategoryTech     = "tech"
	CategoryBusiness = "business"
)

var defaults = []Source{
	{Name: "TechCrunch", URL: "https://techcrunch.com/feed/", Category: CategoryTech},
	{Name: "Hacker News", URL: "https://hnrss.org/frontpage", Category: CategoryTech},
	{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/feed/", Category: CategoryTech},
	{Name: "Wired", URL: "https://www.wired.com/feed/rss", Category: CategoryTech},
	{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Category: CategoryTech},
	{Name: "Harvard Business Review", URL: "https://hbr.org/feed", Category: CategoryBusiness},
	{Name: "Fast Company", URL: "https://www.fastcompany.com/feed", Category: CategoryBusiness},
	{Name: "Entrepreneur", URL: "https://www.entrepreneur.com/feed", Category: CategoryBusiness},
	{Name: "Reuters Business", URL: "https://www.reutersagency.com/feed/?best-topics=business-finance", Category: CategoryBusiness},
	{Name: "Bloomberg", URL: "https://feeds.bloomberg.com/markets/news.rss", Category: CategoryBusiness},
}

// Defaults returns a copy of the built-in source list.
func Defaults() []Source {
	out := make([]Source, len(defaults))
	copy(out, defaults)
	return out
}

// ByCategory filters sources by category (case-insensitive). An empty category returns all.
func ByCategory(list []Source, category string) []Source {
	category = strings.TrimSpace(category)
	if category == "" {
		return list
	}
	var out []Source
	for _, s := range list {
		if strings.EqualFold(s.Category, category) {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the source with the given name (case-insensitive).
func Find(list []Source, name string) (Source, bool) {
	name = strings.TrimSpace(name)
	for _, s := range list {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Source{}, false
}
