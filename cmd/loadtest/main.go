// Command loadtest drives concurrent search traffic at a running library
// server and reports throughput, latency percentiles and cache hit rate.
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 1m
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"water rights",
	"indigenous land claims",
	"treaty",
	"fisheries management",
	"court of appeal",
	"environmental assessment",
	"constitution",
	"mining",
	"self government",
	"oral history",
	"",
}

type target struct {
	baseURL string
	apiKey  string
	types   []string
	limit   int
	queries []string
}

func (t target) searchURL(i int) string {
	v := url.Values{}
	if q := t.queries[i%len(t.queries)]; q != "" {
		v.Set("q", q)
	}
	if len(t.types) > 0 {
		v.Set("type", t.types[i%len(t.types)])
	}
	v.Set("limit", fmt.Sprint(t.limit))
	return t.baseURL + "/api/v1/search?" + v.Encode()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the library server")
	apiKey := flag.String("key", "", "API key to send; anonymous when empty")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results per search")
	types := flag.String("types", "", "comma separated document types to cycle through")
	queryFile := flag.String("queries", "", "file with one query per line; built-in list when empty")
	flag.Parse()

	t := target{
		baseURL: strings.TrimRight(*baseURL, "/"),
		apiKey:  *apiKey,
		limit:   *limit,
		queries: defaultQueries,
	}
	if *types != "" {
		t.types = strings.Split(*types, ",")
	}
	if *queryFile != "" {
		qs, err := readQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		t.queries = qs
	}

	fmt.Println("=== Library Search Load Test ===")
	fmt.Printf("Target:      %s\n", t.baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Queries:     %d unique\n", len(t.queries))
	fmt.Println()

	stats := run(t, *concurrency, *duration)
	if !stats.report(os.Stdout, *duration) {
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s has no queries", path)
	}
	return out, nil
}

func run(t target, concurrency int, duration time.Duration) *stats {
	s := newStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := range concurrency {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i += concurrency {
				s.record(search(ctx, client, t, i))
			}
			return nil
		})
	}
	g.Wait()
	return s
}

func search(ctx context.Context, client *http.Client, t target, i int) sample {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.searchURL(i), nil)
	if err != nil {
		return sample{err: err}
	}
	if t.apiKey != "" {
		req.Header.Set("X-API-Key", t.apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return sample{cancelled: true}
		}
		return sample{latency: time.Since(start), err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	server, _ := time.ParseDuration(resp.Header.Get("X-Search-Latency"))
	return sample{
		latency:  time.Since(start),
		server:   server,
		status:   resp.StatusCode,
		cacheHit: resp.Header.Get("X-Cache") == "HIT",
	}
}
