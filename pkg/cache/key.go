package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key namespaces, one per recognized upstream request shape.
const (
	NamespaceTitles  = "titles"
	NamespaceCourses = "courses"
)

// CacheKey represents the semantic identity of a cacheable timetable request.
type CacheKey struct {
	// Namespace disambiguates the endpoint shape ("titles", "courses")
	Namespace string

	// Subject is the normalized search term or course code
	Subject string

	// Sessions is the normalized (deduplicated, sorted) session list
	Sessions []string

	// Variant holds response-shaping parameters that differ from the
	// frontend's fixed values (e.g. {"page": "2", "campuses": `["UTM"]`})
	Variant map[string]string
}

// String generates a deterministic cache key string.
// Format: namespace:subject:session1,session2[:param1=val1:param2=val2]
//
// Every segment is query-escaped, so a ':', ',' or '=' inside a subject,
// session or variant value cannot shift it into a neighbouring segment.
//
// Example:
//
//	titles:CSC1:20251,20259
//	courses:CSC108H1:20251:page=2
func (k CacheKey) String() string {
	sessions := make([]string, len(k.Sessions))
	for i, s := range k.Sessions {
		sessions[i] = url.QueryEscape(s)
	}

	parts := []string{
		url.QueryEscape(k.Namespace),
		url.QueryEscape(k.Subject),
		strings.Join(sessions, ","),
	}

	// Variant params (sorted for determinism)
	if len(k.Variant) > 0 {
		names := make([]string, 0, len(k.Variant))
		for name := range k.Variant {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(k.Variant[name]))
		}
	}

	return strings.Join(parts, ":")
}

// IsZero reports whether the key is empty.
func (k CacheKey) IsZero() bool {
	return k.Namespace == ""
}
