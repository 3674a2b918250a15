package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"codeclash/internal/cli/httpclient"
	"codeclash/internal/cli/repl"
)

func main() {
	baseURL := flag.String("base", "http://127.0.0.1:8086", "Arena service base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	pretty := flag.Bool("pretty", true, "Pretty print JSON responses")
	flag.Parse()

	client := httpclient.New(*baseURL, *timeout)
	session, err := repl.New(client, *pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init repl failed: %v\n", err)
		return
	}
	defer func() {
		_ = session.Close()
	}()

	session.Run(context.Background())
}
