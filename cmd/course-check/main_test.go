package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Sternrassler/course-checker-proxy/internal/testutil"
	"github.com/Sternrassler/course-checker-proxy/pkg/timetable"
)

func TestRun(t *testing.T) {
	mock := testutil.NewMockTTB()
	defer mock.Close()
	mock.SetResponse("/api/getOptimizedMatchingCourseTitles", testutil.NewXMLResponse(testutil.SampleTitlesXML))
	mock.SetResponse("/api/getPageableCourses", testutil.NewXMLResponse(testutil.SampleCoursesXML))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-semester", "20251", "-proxy", mock.URL() + "/api", "csc108h1"}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d (stderr: %s)", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{"COURSE", "LEC0101", "200/200", "full", "LEC0201", "180/200", "open", "TUT0101"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRun_NotFound(t *testing.T) {
	mock := testutil.NewMockTTB()
	defer mock.Close()
	mock.SetResponse("/api/getOptimizedMatchingCourseTitles", testutil.NewXMLResponse(testutil.SampleTitlesXML))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-semester", "20251", "-proxy", mock.URL() + "/api", "XYZ999H1"}, &stdout, &stderr)

	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stdout.String(), "course not found") {
		t.Errorf("Expected not-found row, got:\n%s", stdout.String())
	}
}

func TestRun_Usage(t *testing.T) {
	tests := [][]string{
		{},
		{"CSC108H1"},
		{"-semester", "20251"},
		{"-semester", "20251", " , "},
		{"-unknown"},
	}

	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		if code := run(args, &stdout, &stderr); code != 2 {
			t.Errorf("run(%q) = %d, want 2", args, code)
		}
		if !strings.Contains(stderr.String(), "usage: course-check") && !strings.Contains(stderr.String(), "-semester") {
			t.Errorf("run(%q): expected usage on stderr, got %q", args, stderr.String())
		}
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	err := printResults(&buf, []timetable.Result{
		{Course: "CSC108H1", Found: true},
		{Course: "AB", Err: timetable.ErrInvalidCourse},
	})
	if err != nil {
		t.Fatalf("printResults failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "no sections") || !strings.Contains(out, "invalid course format") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}
