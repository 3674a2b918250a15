// Package repl implements the interactive arena operator shell.
package repl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"

	"codeclash/internal/cli/httpclient"
)

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	prettyJSON bool
	rl         *readline.Instance
}

func New(client *httpclient.Client, prettyJSON bool) (*Session, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "arena> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("init readline failed: %w", err)
	}
	return &Session{client: client, prettyJSON: prettyJSON, rl: rl}, nil
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.arena_cli_history"
}

func completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("run"),
		readline.PcItem("languages"),
		readline.PcItem("room",
			readline.PcItem("create"),
			readline.PcItem("show"),
			readline.PcItem("close"),
		),
		readline.PcItem("violate"),
		readline.PcItem("violations"),
		readline.PcItem("submit"),
		readline.PcItem("set",
			readline.PcItem("base"),
			readline.PcItem("timeout"),
		),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

func (s *Session) Close() error {
	return s.rl.Close()
}

func (s *Session) Run(ctx context.Context) {
	for {
		line, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			s.printLine("bye")
			return
		}
		if err != nil {
			s.printLine("read input failed: %v", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			s.printLine("bye")
			return
		}
		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	params := map[string]string{}
	var words []string
	for _, token := range tokens {
		if k, v, ok := strings.Cut(token, "="); ok {
			params[k] = v
			continue
		}
		words = append(words, token)
	}
	if len(words) == 0 {
		return fmt.Errorf("invalid command, try: help")
	}

	switch words[0] {
	case "help":
		s.printHelp()
		return nil
	case "set":
		return s.handleSet(words)
	case "languages":
		return s.get(ctx, "/api/v1/languages")
	case "run":
		return s.handleRun(ctx, params)
	case "room":
		if len(words) < 2 {
			return fmt.Errorf("usage: room create|show|close id=<room>")
		}
		return s.handleRoom(ctx, words[1], params)
	case "violate":
		return s.handleViolate(ctx, params)
	case "violations":
		if params["room"] == "" {
			return fmt.Errorf("usage: violations room=<id>")
		}
		return s.get(ctx, "/api/v1/rooms/"+params["room"]+"/violations")
	case "submit":
		return s.handleSubmit(ctx, params)
	default:
		return fmt.Errorf("unknown command: %s", words[0])
	}
}

func (s *Session) handleSet(words []string) error {
	if len(words) < 3 {
		return fmt.Errorf("usage: set base <url> | set timeout <duration>")
	}
	switch words[1] {
	case "base":
		s.client.SetBaseURL(words[2])
		s.printLine("base set to %s", words[2])
	case "timeout":
		dur, err := time.ParseDuration(words[2])
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		return fmt.Errorf("unknown set command: %s", words[1])
	}
	return nil
}

func (s *Session) handleRun(ctx context.Context, params map[string]string) error {
	source, err := sourceFromParams(params)
	if err != nil {
		return err
	}
	if params["language"] == "" {
		return fmt.Errorf("usage: run language=<id> file=<path> [stdin=<text>]")
	}
	body := map[string]interface{}{
		"language":    params["language"],
		"source_code": source,
		"stdin":       params["stdin"],
	}
	if raw := params["time_limit_ms"]; raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid time_limit_ms: %w", err)
		}
		body["time_limit_ms"] = limit
	}
	return s.post(ctx, "/api/v1/execute", body)
}

func (s *Session) handleRoom(ctx context.Context, action string, params map[string]string) error {
	id := params["id"]
	if id == "" {
		return fmt.Errorf("room %s requires id=<room>", action)
	}
	switch action {
	case "create":
		var players []map[string]string
		for _, spec := range strings.Split(params["players"], ",") {
			if spec == "" {
				continue
			}
			pid, name, ok := strings.Cut(spec, ":")
			if !ok {
				name = pid
			}
			players = append(players, map[string]string{"id": pid, "username": name})
		}
		body := map[string]interface{}{
			"id":                  id,
			"started":             params["started"] != "false",
			"players":             players,
			"current_level":       atoiDefault(params["level"], 1),
			"total_levels":        atoiDefault(params["total"], 1),
			"level_started_at_ms": time.Now().UnixMilli(),
		}
		return s.post(ctx, "/api/v1/rooms", body)
	case "show":
		return s.get(ctx, "/api/v1/rooms/"+id)
	case "close":
		return s.do(ctx, http.MethodDelete, "/api/v1/rooms/"+id, nil)
	default:
		return fmt.Errorf("unknown room action: %s", action)
	}
}

func (s *Session) handleViolate(ctx context.Context, params map[string]string) error {
	if params["room"] == "" || params["player"] == "" {
		return fmt.Errorf("usage: violate room=<id> player=<id>")
	}
	return s.post(ctx, "/api/v1/rooms/"+params["room"]+"/violations", map[string]string{
		"player_id": params["player"],
	})
}

func (s *Session) handleSubmit(ctx context.Context, params map[string]string) error {
	if params["room"] == "" || params["player"] == "" || params["language"] == "" {
		return fmt.Errorf("usage: submit room=<id> player=<id> language=<id> file=<path> input=<text> expected=<text>")
	}
	source, err := sourceFromParams(params)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"player_id":   params["player"],
		"language":    params["language"],
		"source_code": source,
		"tests": []map[string]string{
			{"input": params["input"], "expected": params["expected"]},
		},
		"level_duration_seconds": atoiDefault(params["duration"], 0),
	}
	return s.post(ctx, "/api/v1/rooms/"+params["room"]+"/submissions", body)
}

func sourceFromParams(params map[string]string) (string, error) {
	if code := params["code"]; code != "" {
		return code, nil
	}
	file := params["file"]
	if file == "" {
		return "", fmt.Errorf("provide code=<source> or file=<path>")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read source file failed: %w", err)
	}
	return string(data), nil
}

func atoiDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Session) get(ctx context.Context, path string) error {
	return s.do(ctx, http.MethodGet, path, nil)
}

func (s *Session) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request failed: %w", err)
	}
	return s.do(ctx, http.MethodPost, path, payload)
}

func (s *Session) do(ctx context.Context, method, path string, body []byte) error {
	resp, err := s.client.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	return nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) printHelp() {
	s.printLine("commands:")
	s.printLine("  run language=<id> file=<path> [stdin=<text>] [time_limit_ms=<n>]")
	s.printLine("  languages")
	s.printLine("  room create id=<room> players=<id:name,...> [level=<n>] [total=<n>] [started=false]")
	s.printLine("  room show id=<room>")
	s.printLine("  room close id=<room>")
	s.printLine("  violate room=<id> player=<id>")
	s.printLine("  violations room=<id>")
	s.printLine("  submit room=<id> player=<id> language=<id> file=<path> input=<text> expected=<text>")
	s.printLine("system: help | exit | set base <url> | set timeout <duration>")
}

func (s *Session) printLine(format string, args ...interface{}) {
	fmt.Fprintf(s.rl.Stdout(), format+"\n", args...)
}
