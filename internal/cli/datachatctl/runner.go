// Package datachatctl implements the operator CLI as a thin HTTP client for
// the API server.
package datachatctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("datachatctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "DataChat API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 30s)")
	conversation := fs.String("conversation", "", "conversation id for ask (continues an existing transcript)")
	chart := fs.String("chart", "", "chart type override for ask (bar|line|scatter|pie|table)")
	rowLimit := fs.Int("row-limit", 0, "row limit for query/export")
	out := fs.String("out", "", "output file for export (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))

	method := ""
	path := ""
	var body any
	raw := false
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "schema":
		method, path = http.MethodGet, "/v1/schema"
	case "ask":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "ask needs a question, e.g. datachatctl ask How many customers are there?")
			return 2
		}
		method, path = http.MethodPost, "/v1/ask"
		payload := map[string]any{"question": rest}
		if *conversation != "" {
			payload["conversation_id"] = *conversation
		}
		if *chart != "" {
			payload["chart_type"] = *chart
		}
		body = payload
	case "query":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "query needs a SQL statement")
			return 2
		}
		method, path = http.MethodPost, "/v1/query"
		body = queryPayload(rest, *rowLimit, "json")
	case "export":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "export needs a SQL statement")
			return 2
		}
		method, path = http.MethodPost, "/v1/query"
		body = queryPayload(rest, *rowLimit, "parquet")
		raw = true
	case "conversation":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "conversation needs an id")
			return 2
		}
		method, path = http.MethodGet, "/v1/conversations/"+rest
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if raw {
		if *out != "" {
			if err := os.WriteFile(*out, responseBody, 0o644); err != nil {
				_, _ = fmt.Fprintf(stderr, "write %s: %v\n", *out, err)
				return 1
			}
			_, _ = fmt.Fprintf(stdout, "wrote %d bytes to %s\n", len(responseBody), *out)
			return 0
		}
		if _, err := stdout.Write(responseBody); err != nil {
			_, _ = fmt.Fprintf(stderr, "write output: %v\n", err)
			return 1
		}
		return 0
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func queryPayload(sqlText string, rowLimit int, format string) map[string]any {
	payload := map[string]any{"sql": sqlText, "format": format}
	if rowLimit > 0 {
		payload["row_limit"] = rowLimit
	}
	return payload
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: datachatctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                 GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                  GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema                 GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  ask <question>         POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  query <sql>            POST /v1/query")
	_, _ = fmt.Fprintln(w, "  export <sql>           POST /v1/query (parquet, see -out)")
	_, _ = fmt.Fprintln(w, "  conversation <id>      GET /v1/conversations/{id}")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
