package utils

import (
	"strings"

	"golang.org/x/text/language"
)

// DetermineLocale resolves the locale for a request from an explicit query value,
// the Accept-Language header, and a default. Supported values are BCP 47 tags
// such as "pt-BR" or "en"; the returned value is always one of them.
func DetermineLocale(queryLang, acceptLang string, supported []string, def string) string {
	if len(supported) == 0 {
		return def
	}
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tags = append(tags, language.Make(s))
	}
	matcher := language.NewMatcher(tags)

	pick := func(candidates []language.Tag) (string, bool) {
		if len(candidates) == 0 {
			return "", false
		}
		_, idx, conf := matcher.Match(candidates...)
		if conf == language.No {
			return "", false
		}
		return supported[idx], true
	}

	if q := strings.TrimSpace(queryLang); q != "" {
		if tag, err := language.Parse(q); err == nil {
			if v, ok := pick([]language.Tag{tag}); ok {
				return v
			}
		}
	}
	if acceptLang != "" {
		if prefs, _, err := language.ParseAcceptLanguage(acceptLang); err == nil {
			if v, ok := pick(prefs); ok {
				return v
			}
		}
	}
	for _, s := range supported {
		if strings.EqualFold(s, def) {
			return s
		}
	}
	return supported[0]
}
