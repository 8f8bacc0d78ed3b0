// Package timetable looks up course sections through the timetable API,
// either directly or through the caching proxy.
package timetable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/course-checker-proxy/pkg/cache"
	"github.com/Sternrassler/course-checker-proxy/pkg/client"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidCourse is returned for codes too short to search for.
	ErrInvalidCourse = errors.New("invalid course format")

	// ErrCourseNotFound is returned when the title search does not list the course.
	ErrCourseNotFound = errors.New("course not found")
)

// Section is one lecture, tutorial or practical of a course.
type Section struct {
	Name             string `json:"name"`
	CurrentEnrolment int    `json:"currentEnrolment"`
	MaxEnrolment     int    `json:"maxEnrolment"`
}

// Full reports whether no seats are left.
func (s Section) Full() bool {
	return s.CurrentEnrolment >= s.MaxEnrolment
}

// Result is the outcome of looking up one course.
type Result struct {
	Course   string
	Found    bool
	Sections []Section
	Err      error
}

// Message returns the user-facing error text, or "" for a found course.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Doer issues one request against the timetable API.
// *client.Client implements it.
type Doer interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
}

// Client performs course lookups.
type Client struct {
	api    Doer
	logger zerolog.Logger
}

// NewClient creates a lookup client on top of api.
func NewClient(api Doer, logger zerolog.Logger) *Client {
	if api == nil {
		panic("api cannot be nil")
	}
	return &Client{api: api, logger: logger}
}

// SearchTerm returns the title search term for a course code: its first
// four characters with a trailing campus digit "1" removed.
//
//	SearchTerm("CSC108H1") // "CSC"
//	SearchTerm("MAT237Y1") // "MAT2"
func SearchTerm(code string) string {
	if len(code) < 4 {
		return code
	}
	return strings.TrimSuffix(code[:4], "1")
}

// Lookup checks that code exists in semester and returns its sections.
// Failures are reported in Result.Err, never as a separate error.
func (c *Client) Lookup(ctx context.Context, semester, code string) Result {
	result := Result{Course: code}

	if len(code) < 4 {
		result.Err = ErrInvalidCourse
		return result
	}

	logger := c.logger.With().Str("course", code).Str("semester", semester).Logger()

	found, err := c.search(ctx, semester, code)
	if err != nil {
		logger.Warn().Err(err).Msg("Course search failed")
		result.Err = fmt.Errorf("search course: %w", err)
		return result
	}
	if !found {
		result.Err = ErrCourseNotFound
		return result
	}

	sections, err := c.details(ctx, semester, code)
	if err != nil {
		logger.Warn().Err(err).Msg("Course detail lookup failed")
		result.Err = fmt.Errorf("get course details: %w", err)
		return result
	}

	logger.Debug().Int("sections", len(sections)).Msg("Course found")
	result.Found = true
	result.Sections = sections
	return result
}

func (c *Client) search(ctx context.Context, semester, code string) (bool, error) {
	query := url.Values{}
	query.Set("term", SearchTerm(code))
	query.Set("divisions", "ARTSC")
	query.Set("sessions", semester)
	query.Set("lowerThreshold", "50")
	query.Set("upperThreshold", "200")

	resp, err := c.api.Do(ctx, client.Request{
		Method:   http.MethodGet,
		Path:     cache.TitleSearchEndpoint,
		RawQuery: query.Encode(),
	})
	if err != nil {
		return false, err
	}
	if !resp.IsSuccess() {
		return false, &StatusError{StatusCode: resp.StatusCode}
	}

	return strings.Contains(string(resp.Body), code[4:]), nil
}

func (c *Client) details(ctx context.Context, semester, code string) ([]Section, error) {
	body, err := json.Marshal(newCourseQuery(code, semester))
	if err != nil {
		return nil, fmt.Errorf("encode course query: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "*/*")

	resp, err := c.api.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   cache.CourseDetailEndpoint,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	return extractSections(resp.Body)
}

// StatusError is an upstream answer outside 2xx.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// courseQuery is the course detail request body sent by the course checker.
type courseQuery struct {
	CourseCodeAndTitleProps courseCodeAndTitleProps `json:"courseCodeAndTitleProps"`
	DepartmentProps         []string                `json:"departmentProps"`
	Campuses                []string                `json:"campuses"`
	Sessions                []string                `json:"sessions"`
	RequirementProps        []string                `json:"requirementProps"`
	Instructor              string                  `json:"instructor"`
	CourseLevels            []string                `json:"courseLevels"`
	DeliveryModes           []string                `json:"deliveryModes"`
	DayPreferences          []string                `json:"dayPreferences"`
	TimePreferences         []string                `json:"timePreferences"`
	Divisions               []string                `json:"divisions"`
	CreditWeights           []string                `json:"creditWeights"`
	AvailableSpace          bool                    `json:"availableSpace"`
	WaitListable            bool                    `json:"waitListable"`
	Page                    int                     `json:"page"`
	PageSize                int                     `json:"pageSize"`
	Direction               string                  `json:"direction"`
}

type courseCodeAndTitleProps struct {
	CourseCode              string `json:"courseCode"`
	CourseTitle             string `json:"courseTitle"`
	CourseSectionCode       string `json:"courseSectionCode"`
	SearchCourseDescription bool   `json:"searchCourseDescription"`
}

func newCourseQuery(code, semester string) courseQuery {
	return courseQuery{
		CourseCodeAndTitleProps: courseCodeAndTitleProps{CourseCode: code},
		DepartmentProps:         []string{},
		Campuses:                []string{},
		Sessions:                []string{semester},
		RequirementProps:        []string{},
		CourseLevels:            []string{},
		DeliveryModes:           []string{},
		DayPreferences:          []string{},
		TimePreferences:         []string{},
		Divisions:               []string{"ARTSC"},
		CreditWeights:           []string{},
		Page:                    1,
		PageSize:                20,
		Direction:               "asc",
	}
}
