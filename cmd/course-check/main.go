// Command course-check prints the sections and enrolment of a list of
// courses, looked up through the timetable proxy.
//
//	course-check -semester 20251 -proxy http://localhost:3000/api CSC108H1,MAT137Y1
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/Sternrassler/course-checker-proxy/pkg/client"
	"github.com/Sternrassler/course-checker-proxy/pkg/logging"
	"github.com/Sternrassler/course-checker-proxy/pkg/timetable"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("course-check", flag.ContinueOnError)
	fs.SetOutput(stderr)

	semester := fs.String("semester", "", "session code, e.g. 20251 (required)")
	proxyURL := fs.String("proxy", "http://localhost:3000/api", "base URL of the timetable proxy")
	workers := fs.Int("workers", timetable.DefaultBatchConfig().MaxConcurrency, "parallel lookups")
	timeout := fs.Duration("timeout", timetable.DefaultBatchConfig().Timeout, "timeout per course")
	verbose := fs.Bool("v", false, "debug logging")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: course-check -semester SESSION [flags] COURSE[,COURSE...]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	codes := timetable.ParseCourseList(strings.Join(fs.Args(), ","))
	if *semester == "" || len(codes) == 0 {
		fs.Usage()
		return 2
	}

	level := logging.LevelWarn
	if *verbose {
		level = logging.LevelDebug
	}
	logging.Setup(logging.Config{Level: level, Pretty: true, Service: "course-check", Output: stderr})

	api, err := client.New(client.Config{
		BaseURL:   *proxyURL,
		UserAgent: "course-check",
		Timeout:   *timeout,
	})
	if err != nil {
		fmt.Fprintf(stderr, "course-check: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lookup := timetable.NewClient(api, logging.NewLogger("timetable"))
	results := lookup.BatchLookup(ctx, *semester, codes, timetable.BatchConfig{
		MaxConcurrency: *workers,
		Timeout:        *timeout,
	})

	if err := printResults(stdout, results); err != nil {
		fmt.Fprintf(stderr, "course-check: %v\n", err)
		return 1
	}

	for _, r := range results {
		if !r.Found {
			return 1
		}
	}
	return 0
}

func printResults(w io.Writer, results []timetable.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tSECTION\tENROLMENT\tSTATUS")

	for _, r := range results {
		if !r.Found {
			fmt.Fprintf(tw, "%s\t-\t-\t%s\n", r.Course, r.Message())
			continue
		}
		if len(r.Sections) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\tno sections\n", r.Course)
			continue
		}
		for _, s := range r.Sections {
			status := "open"
			if s.Full() {
				status = "full"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", r.Course, s.Name, s.CurrentEnrolment, s.MaxEnrolment, status)
		}
	}

	return tw.Flush()
}
