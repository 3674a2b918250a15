// Package judge runs a submission against a problem's test cases and turns
// the outcome into the scored level submission a room consumes.
package judge

import (
	"context"
	"strings"

	"codeclash/internal/arena/executor"
	appErr "codeclash/pkg/errors"
)

// Executor is the execution engine port, narrowed for fakes in tests.
type Executor interface {
	Execute(ctx context.Context, req executor.Request) (executor.Result, error)
}

// TestCase pairs an input with its expected output.
type TestCase struct {
	Input    string
	Expected string
}

// CaseResult is the outcome of one test case.
type CaseResult struct {
	Index    int
	Passed   bool
	TimedOut bool
	ExitCode int
	TimeMs   int64
	Stdout   string
	Stderr   string
}

// TestReport aggregates a full test run.
type TestReport struct {
	Passed      int
	Total       int
	ErrorCount  int
	TotalTimeMs int64
	Cases       []CaseResult
}

// AllTimedOut reports whether every case hit the time limit.
func (r TestReport) AllTimedOut() bool {
	if r.Total == 0 {
		return false
	}
	for _, c := range r.Cases {
		if !c.TimedOut {
			return false
		}
	}
	return true
}

// PassRatio returns passed/total, 0 for an empty run.
func (r TestReport) PassRatio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total)
}

// Judge executes submissions case by case through the engine.
type Judge struct {
	eng Executor
}

// NewJudge creates a judge backed by the execution engine.
func NewJudge(eng Executor) *Judge {
	return &Judge{eng: eng}
}

// RunTests executes the source once per test case. A timeout or non-zero
// exit fails the case and counts as an error; engine-level failures
// (unsupported language, artifact write, launch) abort the whole run.
func (j *Judge) RunTests(ctx context.Context, language, sourceCode string, tests []TestCase, timeLimitMs int64) (TestReport, error) {
	if len(tests) == 0 {
		return TestReport{}, appErr.New(appErr.NoTestCases)
	}

	report := TestReport{Total: len(tests)}
	for i, tc := range tests {
		res, err := j.eng.Execute(ctx, executor.Request{
			Language:    language,
			SourceCode:  sourceCode,
			Stdin:       tc.Input,
			TimeLimitMs: timeLimitMs,
		})
		if err != nil {
			if appErr.Is(err, appErr.ExecutionTimeout) {
				report.ErrorCount++
				// A timed-out case consumed the whole limit.
				report.TotalTimeMs += timeLimitMs
				report.Cases = append(report.Cases, CaseResult{
					Index:    i,
					TimedOut: true,
					ExitCode: -1,
					TimeMs:   timeLimitMs,
				})
				continue
			}
			return TestReport{}, err
		}

		passed := res.ExitCode == 0 && outputMatches(res.Stdout, tc.Expected)
		if passed {
			report.Passed++
		} else {
			report.ErrorCount++
		}
		report.TotalTimeMs += res.ExecutionTimeMs
		report.Cases = append(report.Cases, CaseResult{
			Index:    i,
			Passed:   passed,
			ExitCode: res.ExitCode,
			TimeMs:   res.ExecutionTimeMs,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		})
	}
	return report, nil
}

// outputMatches compares trimmed output line by line, tolerating trailing
// whitespace per line.
func outputMatches(actual, expected string) bool {
	actualLines := strings.Split(strings.TrimRight(actual, " \t\r\n"), "\n")
	expectedLines := strings.Split(strings.TrimRight(expected, " \t\r\n"), "\n")
	if len(actualLines) != len(expectedLines) {
		return false
	}
	for i := range actualLines {
		if strings.TrimRight(actualLines[i], " \t\r") != strings.TrimRight(expectedLines[i], " \t\r") {
			return false
		}
	}
	return true
}
