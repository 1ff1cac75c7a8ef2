package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
)

const (
	baseURL      = "http://127.0.0.1:8470"
	numWorkers   = 20
	testDuration = 10 * time.Second
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type historyEntry struct {
	Timestamp string `json:"timestamp"`
}

// timestamps caches the last seen history so restore/get requests hit real backups.
type timestamps struct {
	mu  sync.RWMutex
	all []string
}

func (t *timestamps) set(all []string) {
	t.mu.Lock()
	t.all = all
	t.mu.Unlock()
}

func (t *timestamps) pick(rng *rand.Rand) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.all) == 0 {
		return ""
	}
	return t.all[rng.Intn(len(t.all))]
}

var known = &timestamps{}

func main() {
	fmt.Println("=== backupd Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n\n", numWorkers, testDuration)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Capturing (POST /backups) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doCreate()
	})

	fmt.Println("\n--- Phase 2: Mixed load (20% capture, 10% restore, 70% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.20:
			return doCreate()
		case r < 0.30:
			return doRestore(rng)
		case r < 0.55:
			return doHistory()
		case r < 0.75:
			return doGet(rng)
		case r < 0.90:
			return doSimpleGet("/backups/stats")
		default:
			return doSimpleGet("/backups/latest")
		}
	})

	fmt.Println("\n--- Phase 3: Read-heavy load ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.05:
			return doCreate()
		case r < 0.50:
			return doHistory()
		case r < 0.80:
			return doGet(rng)
		default:
			return doSimpleGet("/backups/status")
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Inc()
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	fmt.Printf("  operations: %d\n", totalOps.Load())
	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-26s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 92))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-26s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 92))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func timed(endpoint string, expect int, call func() (*http.Response, error)) (result, []byte) {
	start := time.Now()
	resp, err := call()
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}, nil
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != expect}, body
}

func doCreate() result {
	r, _ := timed("POST /backups", http.StatusCreated, func() (*http.Response, error) {
		return httpClient.Post(baseURL+"/backups", "application/json", nil)
	})
	return r
}

func doHistory() result {
	r, body := timed("GET /backups", http.StatusOK, func() (*http.Response, error) {
		return httpClient.Get(baseURL + "/backups")
	})
	var entries []historyEntry
	if json.Unmarshal(body, &entries) == nil {
		all := make([]string, len(entries))
		for i, e := range entries {
			all[i] = e.Timestamp
		}
		known.set(all)
	}
	return r
}

func doGet(rng *rand.Rand) result {
	ts := known.pick(rng)
	r, _ := timed("GET /backups/get", http.StatusOK, func() (*http.Response, error) {
		return httpClient.Get(baseURL + "/backups/get?timestamp=" + ts)
	})
	// rotated out between listing and fetching
	if r.status == http.StatusNotFound {
		r.err = false
	}
	return r
}

func doRestore(rng *rand.Rand) result {
	data, _ := json.Marshal(map[string]string{"timestamp": known.pick(rng)})
	r, _ := timed("POST /backups/restore", http.StatusOK, func() (*http.Response, error) {
		return httpClient.Post(baseURL+"/backups/restore", "application/json", bytes.NewReader(data))
	})
	if r.status == http.StatusNotFound {
		r.err = false
	}
	return r
}

func doSimpleGet(path string) result {
	r, _ := timed("GET "+path, http.StatusOK, func() (*http.Response, error) {
		return httpClient.Get(baseURL + path)
	})
	if path == "/backups/latest" && r.status == http.StatusNotFound {
		r.err = false
	}
	return r
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
