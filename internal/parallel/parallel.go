package parallel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/msalah0e/orbit/internal/ui"
	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of a parallel task.
type Result struct {
	Name    string
	OK      bool
	Err     error
	Output  string
	Elapsed time.Duration
}

// Task is a function that runs in parallel. Output is a short summary shown next to
// the task name.
type Task struct {
	Name string
	Fn   func(ctx context.Context) (string, error)
}

// Run executes tasks with the given concurrency limit and reports progress to w.
// Results are returned in the order tasks were submitted. A cancelled ctx skips tasks
// that have not started yet.
func Run(ctx context.Context, w io.Writer, tasks []Task, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 4
	}

	results := make([]Result, len(tasks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Name: task.Name, Err: err}
				return nil
			}
			start := time.Now()

			mu.Lock()
			fmt.Fprintf(w, "  %s %s...\n", ui.Subtle.Sprint("⟳"), task.Name)
			mu.Unlock()

			output, err := task.Fn(gctx)
			elapsed := time.Since(start)

			mu.Lock()
			if err != nil {
				results[i] = Result{Name: task.Name, OK: false, Err: err, Output: output, Elapsed: elapsed}
				fmt.Fprintf(w, "  %s %s %s\n", ui.StatusIcon(false), task.Name, ui.Bad.Sprintf("(%v)", err))
				if output = strings.TrimSpace(output); output != "" {
					for _, line := range truncateLines(output, 5) {
						fmt.Fprintf(w, "      %s\n", ui.Subtle.Sprint(line))
					}
				}
			} else {
				results[i] = Result{Name: task.Name, OK: true, Output: output, Elapsed: elapsed}
				fmt.Fprintf(w, "  %s %s %s %s\n", ui.StatusIcon(true), task.Name,
					output, ui.Subtle.Sprintf("%.1fs", elapsed.Seconds()))
			}
			mu.Unlock()

			return nil // results carry the errors
		})
	}

	_ = g.Wait()
	return results
}

// Failed counts results that did not succeed.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK {
			n++
		}
	}
	return n
}

// truncateLines splits text into lines and returns at most n lines.
func truncateLines(s string, n int) []string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return lines
	}
	out := lines[:n]
	out = append(out, fmt.Sprintf("... (%d more lines)", len(lines)-n))
	return out
}
