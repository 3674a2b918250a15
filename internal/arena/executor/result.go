package executor

// Request describes one execution attempt.
type Request struct {
	Language    string
	SourceCode  string
	Stdin       string
	TimeLimitMs int64
}

// Result is produced once per successful execution attempt and is immutable
// after return. A non-zero ExitCode is a program failure, not an engine
// error; the caller interprets it.
type Result struct {
	Stdout          string
	Stderr          string
	ExecutionTimeMs int64
	ExitCode        int
}
