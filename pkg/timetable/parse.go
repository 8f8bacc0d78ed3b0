package timetable

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrNotXML is returned when a course detail body does not start with an element.
var ErrNotXML = errors.New("invalid response format - not XML")

// ParseCourseList splits user input on commas and reduces each entry to an
// uppercase alphanumeric course code. Empty entries are dropped.
//
//	ParseCourseList("csc108h1, MAT 137Y1,,") // [CSC108H1 MAT137Y1]
func ParseCourseList(input string) []string {
	var codes []string
	for _, part := range strings.Split(input, ",") {
		var b strings.Builder
		for _, r := range part {
			switch {
			case r >= 'a' && r <= 'z':
				b.WriteRune(r - 'a' + 'A')
			case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			codes = append(codes, b.String())
		}
	}
	return codes
}

var leadingJunk = regexp.MustCompile(`^\W+<`)

// cleanResponse strips the anti-hijacking prefix the upstream puts in front
// of its XML.
func cleanResponse(body []byte) ([]byte, error) {
	cleaned := bytes.TrimSpace(body)
	if len(cleaned) == 0 {
		return nil, errors.New("empty response from API")
	}
	cleaned = leadingJunk.ReplaceAll(cleaned, []byte("<"))
	if cleaned[0] != '<' {
		return nil, ErrNotXML
	}
	return cleaned, nil
}

type coursesPayload struct {
	XMLName xml.Name `xml:"payload"`
	Courses []struct {
		Sections []xmlSection `xml:"sections>sections"`
	} `xml:"pageableCourse>courses>courses"`
}

type xmlSection struct {
	Name             *string `xml:"name"`
	CurrentEnrolment *string `xml:"currentEnrolment"`
	MaxEnrolment     *string `xml:"maxEnrolment"`
}

// extractSections returns every section of every course in a course detail
// payload, sorted by name. Sections missing a name or either enrolment
// figure are skipped; unparsable figures count as zero.
func extractSections(body []byte) ([]Section, error) {
	cleaned, err := cleanResponse(body)
	if err != nil {
		return nil, err
	}

	var payload coursesPayload
	if err := xml.Unmarshal(cleaned, &payload); err != nil {
		return nil, fmt.Errorf("decode course payload: %w", err)
	}

	sections := []Section{}
	for _, course := range payload.Courses {
		for _, s := range course.Sections {
			if s.Name == nil || s.CurrentEnrolment == nil || s.MaxEnrolment == nil {
				continue
			}
			sections = append(sections, Section{
				Name:             strings.TrimSpace(*s.Name),
				CurrentEnrolment: atoi(*s.CurrentEnrolment),
				MaxEnrolment:     atoi(*s.MaxEnrolment),
			})
		}
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Name < sections[j].Name
	})
	return sections, nil
}

// atoi parses a leading integer the way a lenient browser parser would.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	n, neg := 0, false
	for i, r := range s {
		if i == 0 && (r == '-' || r == '+') {
			neg = r == '-'
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		return -n
	}
	return n
}
