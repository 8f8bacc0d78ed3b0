package timetable

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/course-checker-proxy/internal/testutil"
)

func TestBatchLookup_PreservesOrder(t *testing.T) {
	mock := testutil.NewMockTTB()
	defer mock.Close()
	mock.SetResponse(titlesPath, testutil.NewXMLResponse(testutil.SampleTitlesXML))
	mock.SetResponse(coursesPath, testutil.NewXMLResponse(testutil.SampleCoursesXML))

	codes := []string{"CSC108H1", "AB", "XYZ999H1", "CSC148H1"}
	results := newTestClient(t, mock).BatchLookup(context.Background(), "20251", codes, DefaultBatchConfig())

	if len(results) != len(codes) {
		t.Fatalf("Expected %d results, got %d", len(codes), len(results))
	}

	wantFound := []bool{true, false, false, true}
	for i, r := range results {
		if r.Course != codes[i] {
			t.Errorf("results[%d].Course = %q, want %q", i, r.Course, codes[i])
		}
		if r.Found != wantFound[i] {
			t.Errorf("results[%d].Found = %v, want %v (err: %v)", i, r.Found, wantFound[i], r.Err)
		}
	}

	if !errors.Is(results[1].Err, ErrInvalidCourse) {
		t.Errorf("Expected ErrInvalidCourse for %q, got %v", codes[1], results[1].Err)
	}
	if !errors.Is(results[2].Err, ErrCourseNotFound) {
		t.Errorf("Expected ErrCourseNotFound for %q, got %v", codes[2], results[2].Err)
	}
}

func TestBatchLookup_BoundedConcurrency(t *testing.T) {
	mock := testutil.NewMockTTB()
	defer mock.Close()

	var inFlight, maxInFlight int32
	mock.SetHandler(titlesPath, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}

		time.Sleep(30 * time.Millisecond)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte("<payload/>"))
	})

	codes := []string{"AAA101H1", "BBB101H1", "CCC101H1", "DDD101H1", "EEE101H1", "FFF101H1"}
	results := newTestClient(t, mock).BatchLookup(context.Background(), "20251", codes, BatchConfig{MaxConcurrency: 2})

	if len(results) != len(codes) {
		t.Fatalf("Expected %d results, got %d", len(codes), len(results))
	}
	if got := atomic.LoadInt32(&maxInFlight); got > 2 {
		t.Errorf("Expected at most 2 concurrent lookups, saw %d", got)
	}
	if mock.GetRequestCount() != len(codes) {
		t.Errorf("Expected %d search calls, got %d", len(codes), mock.GetRequestCount())
	}
}

func TestBatchLookup_Cancelled(t *testing.T) {
	mock := testutil.NewMockTTB()
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	codes := []string{"CSC108H1", "MAT137Y1"}
	results := newTestClient(t, mock).BatchLookup(ctx, "20251", codes, DefaultBatchConfig())

	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("results[%d].Err = %v, want context.Canceled", i, r.Err)
		}
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("Expected no upstream calls, got %d", mock.GetRequestCount())
	}
}

func TestBatchLookup_Empty(t *testing.T) {
	mock := testutil.NewMockTTB()
	defer mock.Close()

	results := newTestClient(t, mock).BatchLookup(context.Background(), "20251", nil, DefaultBatchConfig())
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}
