package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	ScoreRatio  float64
	Items       []item
}

type item struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Body         string   `json:"body"`
	Keywords     []string `json:"keywords"`
	URL          string   `json:"url"`
	CategoryTags []string `json:"categoryTags"`
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     map[string][]time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[string][]time.Duration),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(endpoint string, duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies[endpoint] = append(s.latencies[endpoint], duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the link engine")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	scoreRatio := flag.Float64("score-ratio", 0.3, "fraction of requests sent to the score endpoint")
	seed := flag.Bool("seed", true, "rebuild the index with the synthetic catalog before the run")
	catalogSize := flag.Int("catalog", 200, "number of synthetic catalog items")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		ScoreRatio:  *scoreRatio,
		Items:       syntheticCatalog(*catalogSize),
	}

	fmt.Println("=== Link Engine Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Catalog:     %d items\n", len(cfg.Items))
	fmt.Println()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	if *seed {
		if err := seedIndex(client, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "seeding index: %v\n", err)
			os.Exit(1)
		}
	}

	stats := runLoadTest(client, cfg)
	printReport(stats, cfg.Duration)
}

var (
	topics = []string{"project", "notes", "design", "analytics", "email", "automation", "writing", "video", "finance", "security"}
	nouns  = []string{"tool", "workflow", "template", "guide", "board", "tracker", "editor", "dashboard"}
)

func syntheticCatalog(n int) []item {
	types := []string{"tool", "article", "category"}
	items := make([]item, 0, n)
	for i := 0; i < n; i++ {
		topic := topics[i%len(topics)]
		noun := nouns[(i/len(topics))%len(nouns)]
		title := fmt.Sprintf("%s %s %d", strings.ToUpper(topic[:1])+topic[1:], noun, i)
		body := strings.Repeat(fmt.Sprintf(
			"The %s %s helps teams with %s. Compare it with other %s options and read the %s guide. ",
			topic, noun, topics[(i+1)%len(topics)], noun, topics[(i+2)%len(topics)],
		), 4+i%6)
		items = append(items, item{
			ID:           fmt.Sprintf("item-%04d", i),
			Type:         types[i%len(types)],
			Title:        title,
			Description:  fmt.Sprintf("Everything about the %s %s. Learn how to get started today.", topic, noun),
			Body:         body,
			Keywords:     []string{topic, noun},
			URL:          fmt.Sprintf("/%ss/item-%04d", types[i%len(types)], i),
			CategoryTags: []string{topic},
		})
	}
	return items
}

func seedIndex(client *http.Client, cfg Config) error {
	resp, err := postJSON(context.Background(), client, cfg.BaseURL+"/api/v1/index/rebuild", map[string]any{"items": cfg.Items})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rebuild returned %d", resp.StatusCode)
	}
	return nil
}

func runLoadTest(client *http.Client, cfg Config) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(workerID), 0))
			for ctx.Err() == nil {
				src := cfg.Items[rng.IntN(len(cfg.Items))]
				endpoint, payload := "suggest", any(map[string]any{"source": src})
				if rng.Float64() < cfg.ScoreRatio {
					endpoint, payload = "score", map[string]any{"item": src}
				}
				path := "/api/v1/links/suggest"
				if endpoint == "score" {
					path = "/api/v1/content/score"
				}

				start := time.Now()
				resp, err := postJSON(ctx, client, cfg.BaseURL+path, payload)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.RecordRequest(endpoint, elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(endpoint, elapsed, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return client.Do(req)
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	stats.latenciesMu.Lock()
	endpoints := make([]string, 0, len(stats.latencies))
	for name := range stats.latencies {
		endpoints = append(endpoints, name)
	}
	sort.Strings(endpoints)
	for _, name := range endpoints {
		printLatency(name, stats.latencies[name])
	}
	stats.latenciesMu.Unlock()

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		count := stats.statusCodes[code].Load()
		fmt.Printf("  %d: %d\n", code, count)
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func printLatency(endpoint string, recorded []time.Duration) {
	if len(recorded) == 0 {
		return
	}
	latencies := slices.Clone(recorded)
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))

	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l - avg)
		sumSquared += diff * diff
	}
	stddev := time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))

	fmt.Println()
	fmt.Printf("=== Latency: %s (%d requests) ===\n", endpoint, len(latencies))
	fmt.Printf("Min:    %s\n", latencies[0])
	fmt.Printf("Avg:    %s\n", avg)
	fmt.Printf("P50:    %s\n", percentile(latencies, 50))
	fmt.Printf("P95:    %s\n", percentile(latencies, 95))
	fmt.Printf("P99:    %s\n", percentile(latencies, 99))
	fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	fmt.Printf("StdDev: %s\n", stddev)
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
