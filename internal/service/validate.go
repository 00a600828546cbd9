package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sakif/resource-showcase/internal/apperror"
)

// cleanText trims surrounding whitespace and nothing else. Text such as
// "Vec<T>" is content on this site; every renderer escapes on output.
func cleanText(s string) string {
	return strings.TrimSpace(s)
}

// validURL reports whether s is an absolute http or https URL.
func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func checkURL(field, s string) error {
	if !validURL(s) {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be an absolute http(s) URL", field))
	}
	return nil
}

func checkLength(field, s string, max int) error {
	if len([]rune(s)) > max {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return nil
}

// normalizeTags trims each tag, drops empties and
// case-insensitive duplicates, keeping first-seen order.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = cleanText(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		if err := checkLength("tags", t, MaxTagLength); err != nil {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("each tag must be %d characters or less", MaxTagLength))
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	if len(out) > MaxTags {
		return nil, apperror.ValidationFailed("tags", fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	return out, nil
}
