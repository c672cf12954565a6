package repo

import "strings"

// Keyword lists for category detection. A detected language matches a list
// when any keyword appears as a case-insensitive substring of its name;
// keywords shorter than three characters must match the whole name, so that
// "C" does not swallow every name containing the letter. Lists are checked
// in order and the first hit wins. Nothing currently maps to FULLSTACK.
var (
	frontendKeywords = []string{"JavaScript", "TypeScript", "HTML", "CSS", "SCSS", "Less", "React", "Vue", "Angular", "Svelte"}
	backendKeywords  = []string{"Python", "Java", "C#", "PHP", "Ruby", "Go", "Rust", "Node.js"}
	mobileKeywords   = []string{"Swift", "Kotlin", "Dart", "Flutter", "React Native"}
	desktopKeywords  = []string{"C++", "C", "Electron"}
)

// CategoryForLanguage maps a detected language or framework name to its
// category. The function is deterministic and total: names that match no
// keyword list fall back to FRONTEND.
func CategoryForLanguage(name string) Category {
	switch {
	case matchesAny(name, frontendKeywords):
		return CategoryFrontend
	case matchesAny(name, backendKeywords):
		return CategoryBackend
	case matchesAny(name, mobileKeywords):
		return CategoryMobile
	case matchesAny(name, desktopKeywords):
		return CategoryDesktop
	default:
		return CategoryFrontend
	}
}

func matchesAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range keywords {
		k := strings.ToLower(keyword)
		if len(k) < 3 {
			if lower == k {
				return true
			}
			continue
		}
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
