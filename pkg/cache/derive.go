package cache

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Upstream endpoint names recognized by the key deriver.
const (
	TitleSearchEndpoint  = "getOptimizedMatchingCourseTitles"
	CourseDetailEndpoint = "getPageableCourses"
)

// Request is the subset of an inbound request that determines the upstream response.
type Request struct {
	// Method is the HTTP method (any case)
	Method string

	// Path is the request path with the public prefix stripped
	Path string

	// Query holds the query parameters, repeated keys preserved
	Query url.Values

	// Body is the raw request body
	Body []byte
}

// Values the course checker frontend always sends. A parameter that is
// absent or equal to its default does not affect the key; every other
// parameter is appended as a variant so different upstream answers never
// share an entry.
var (
	titleDefaults = map[string]string{
		"divisions":      "ARTSC",
		"lowerThreshold": "50",
		"upperThreshold": "200",
	}

	// Course detail defaults in canonical JSON form (see canonicalJSON).
	// Nested courseCodeAndTitleProps fields are keyed by their dotted path.
	courseDefaults = map[string]string{
		"availableSpace":   `false`,
		"campuses":         `[]`,
		"courseLevels":     `[]`,
		"creditWeights":    `[]`,
		"dayPreferences":   `[]`,
		"deliveryModes":    `[]`,
		"departmentProps":  `[]`,
		"direction":        `"asc"`,
		"divisions":        `["ARTSC"]`,
		"instructor":       `""`,
		"page":             `1`,
		"pageSize":         `20`,
		"requirementProps": `[]`,
		"timePreferences":  `[]`,
		"waitListable":     `false`,

		"courseCodeAndTitleProps.courseTitle":             `""`,
		"courseCodeAndTitleProps.courseSectionCode":       `""`,
		"courseCodeAndTitleProps.searchCourseDescription": `false`,
	}
)

// DeriveKey classifies the request into a cacheable shape and returns its key.
// The second return value is false when the request must not be cached.
func DeriveKey(req Request) (CacheKey, bool) {
	method := strings.ToUpper(req.Method)
	path := strings.TrimPrefix(req.Path, "/")

	switch {
	case method == http.MethodGet && strings.Contains(path, TitleSearchEndpoint):
		return titleSearchKey(req.Query)
	case method == http.MethodPost && strings.Contains(path, CourseDetailEndpoint):
		return courseDetailKey(req.Body)
	default:
		return CacheKey{}, false
	}
}

func titleSearchKey(query url.Values) (CacheKey, bool) {
	term, ok := singleValue(query["term"])
	if !ok || term == "" {
		return CacheKey{}, false
	}

	sessions := NormalizeSessions(query["sessions"])
	if len(sessions) == 0 {
		return CacheKey{}, false
	}

	variant := make(map[string]string)
	for name, values := range query {
		if name == "term" || name == "sessions" {
			continue
		}
		v := queryValue(values)
		if def, known := titleDefaults[name]; known && v == def {
			continue
		}
		variant[name] = v
	}

	return CacheKey{
		Namespace: NamespaceTitles,
		Subject:   term,
		Sessions:  sessions,
		Variant:   emptyToNil(variant),
	}, true
}

// singleValue normalizes every occurrence of a repeated parameter and
// returns it only when all occurrences agree.
func singleValue(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	first := normalizeCode(values[0])
	for _, v := range values[1:] {
		if normalizeCode(v) != first {
			return "", false
		}
	}
	return first, true
}

// queryValue renders the occurrences of one query parameter as a single
// string. A lone value is kept as is unless it could be mistaken for the
// JSON array used for repeated occurrences.
func queryValue(values []string) string {
	if len(values) == 1 && !strings.HasPrefix(values[0], "[") {
		return values[0]
	}
	b, _ := json.Marshal(values)
	return string(b)
}

func courseDetailKey(body []byte) (CacheKey, bool) {
	if len(body) == 0 {
		return CacheKey{}, false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return CacheKey{}, false
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return CacheKey{}, false
	}

	props, ok := fields["courseCodeAndTitleProps"].(map[string]any)
	if !ok {
		return CacheKey{}, false
	}

	code := normalizeCode(scalarString(props["courseCode"]))
	if code == "" {
		return CacheKey{}, false
	}

	sessions := NormalizeSessions(listValues(fields["sessions"]))
	if len(sessions) == 0 {
		return CacheKey{}, false
	}

	variant := make(map[string]string)
	addVariant := func(name string, value any) bool {
		v, err := canonicalJSON(value)
		if err != nil {
			return false
		}
		if v != courseDefaults[name] {
			variant[name] = v
		}
		return true
	}

	for name, value := range fields {
		if name == "sessions" || name == "courseCodeAndTitleProps" {
			continue
		}
		if !addVariant(name, value) {
			return CacheKey{}, false
		}
	}
	for name, value := range props {
		if name == "courseCode" {
			continue
		}
		if !addVariant("courseCodeAndTitleProps."+name, value) {
			return CacheKey{}, false
		}
	}

	return CacheKey{
		Namespace: NamespaceCourses,
		Subject:   code,
		Sessions:  sessions,
		Variant:   emptyToNil(variant),
	}, true
}

// canonicalJSON re-encodes a decoded body value. Object keys come out
// sorted and insignificant whitespace is dropped.
func canonicalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NormalizeSessions trims, uppercases, deduplicates and sorts a session list.
// Items may themselves be comma-separated.
func NormalizeSessions(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	sessions := make([]string, 0, len(raw))

	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			s := strings.ToUpper(strings.TrimSpace(part))
			if s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			sessions = append(sessions, s)
		}
	}

	sort.Strings(sessions)
	return sessions
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// listValues flattens a decoded JSON value (array or scalar) into strings.
func listValues(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, scalarString(item))
		}
		return out
	default:
		return []string{scalarString(val)}
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func emptyToNil(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
