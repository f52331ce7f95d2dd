package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lazysauce/collector/internal/directory"
	"github.com/lazysauce/collector/internal/store"
)

const domainCount = 20

type hitResult struct {
	PKey  string `json:"pkey"`
	Hash  string `json:"hash"`
	Error string `json:"error"`
}

func main() {
	concurrency := flag.Int("c", 50, "number of concurrent workers")
	duration := flag.Duration("d", 10*time.Second, "benchmark duration")
	actions := flag.Float64("a", 0.5, "fraction of hits followed by an action")
	flag.Parse()

	fmt.Println("LazySauce Collector Benchmark")
	fmt.Println("=============================")

	// 1. Build server binary
	fmt.Printf("Building server...     ")
	tmpDir, err := os.MkdirTemp("", "lazysauce-bench-*")
	if err != nil {
		fatal("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	binPath := filepath.Join(tmpDir, "collector")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/server")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fatal("build server: %v", err)
	}
	fmt.Println("done")

	// 2. Seed the directory
	fmt.Printf("Seeding directory...   ")
	dataDir := filepath.Join(tmpDir, "data")
	ctx := context.Background()
	router, err := store.Open(ctx, store.Options{Driver: "sqlite", DataDir: dataDir, DirectoryHost: "localhost"}, nil)
	if err != nil {
		fatal("open store: %v", err)
	}
	dir, err := directory.New(router, 10, nil)
	if err != nil {
		router.Close()
		fatal("open directory: %v", err)
	}
	adv, err := dir.CreateAdvertiser(ctx, "bench", "bench-license", "")
	router.Close()
	if err != nil {
		fatal("create advertiser: %v", err)
	}
	aid := strconv.FormatInt(adv.ID, 10)
	domains := make([]string, domainCount)
	for i := range domains {
		domains[i] = fmt.Sprintf("https://bench-%02d.test/landing?c=bench&s=w%d", i+1, i%4)
	}
	fmt.Printf("done (advertiser %s, %d domains)\n", aid, domainCount)

	// 3. Start server
	fmt.Printf("Starting server...     ")
	port, err := freePort()
	if err != nil {
		fatal("find free port: %v", err)
	}

	srv := exec.Command(binPath)
	srvLog, err := os.Create(filepath.Join(tmpDir, "server.log"))
	if err != nil {
		fatal("create server log: %v", err)
	}
	defer srvLog.Close()
	srv.Stdout = srvLog
	srv.Stderr = srvLog
	srv.Env = append(os.Environ(),
		fmt.Sprintf("LAZYSAUCE_PORT=%d", port),
		"LAZYSAUCE_DB_DRIVER=sqlite",
		"LAZYSAUCE_DATA_DIR="+dataDir,
		"LAZYSAUCE_DB_HOST=localhost",
		"LAZYSAUCE_LOG_MODE=debug",
		"LAZYSAUCE_CHECKPOINT_BUFFER=500000",
		"LAZYSAUCE_CHECKPOINT_FLUSH=1h",
	)
	if err := srv.Start(); err != nil {
		fatal("start server: %v", err)
	}
	defer func() {
		srv.Process.Signal(syscall.SIGINT)
		srv.Wait()
	}()

	// 4. Wait for server ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitReady(baseURL+"/", 5*time.Second); err != nil {
		fatal("server not ready: %v", err)
	}
	fmt.Printf("ready (port %d)\n", port)

	// 5. Run benchmark
	fmt.Printf("Benchmarking...        %s, %d workers\n", *duration, *concurrency)

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: *concurrency,
		},
	}

	rng := rand.New(rand.NewSource(42))
	seeds := make([]int64, *concurrency)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	var (
		mu        sync.Mutex
		latencies []time.Duration
		errors    int64
		reqCount  atomic.Int64
	)

	benchStart := time.Now()
	deadline := benchStart.Add(*duration)
	var wg sync.WaitGroup

	// Progress bar
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		totalSec := duration.Seconds()
		for {
			select {
			case <-done:
				printProgress(totalSec, totalSec, reqCount.Load())
				fmt.Println()
				return
			case <-ticker.C:
				elapsed := time.Since(benchStart).Seconds()
				if elapsed > totalSec {
					elapsed = totalSec
				}
				printProgress(elapsed, totalSec, reqCount.Load())
			}
		}
	}()

	for i := range *concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			localRng := rand.New(rand.NewSource(seeds[i]))
			var localLats []time.Duration
			var localErrs int64

			call := func(path string, q url.Values) (hitResult, bool) {
				start := time.Now()
				var res hitResult
				resp, err := client.Get(baseURL + path + "?" + q.Encode())
				reqCount.Add(1)
				if err != nil {
					localErrs++
					return res, false
				}
				err = json.NewDecoder(resp.Body).Decode(&res)
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if err != nil || resp.StatusCode != http.StatusOK || res.Error != "" {
					localErrs++
					return res, false
				}
				localLats = append(localLats, time.Since(start))
				return res, true
			}

			for time.Now().Before(deadline) {
				hit, ok := call("/hit", url.Values{
					"lazy_url": {domains[localRng.Intn(domainCount)]},
					"a":        {aid},
					"l":        {"bench-license"},
					"i":        {fmt.Sprintf("203.0.%d.%d", localRng.Intn(256), localRng.Intn(256))},
				})
				if !ok || localRng.Float64() >= *actions {
					continue
				}
				call("/action", url.Values{
					"p":  {hit.PKey},
					"h":  {hit.Hash},
					"ao": {"buy_click"},
					"r":  {fmt.Sprintf("%d.%02d", localRng.Intn(200), localRng.Intn(100))},
				})
			}

			mu.Lock()
			latencies = append(latencies, localLats...)
			errors += localErrs
			mu.Unlock()
		}()
	}

	wg.Wait()
	close(done)
	time.Sleep(10 * time.Millisecond) // let progress goroutine print final line

	// 6. Report results
	total := int64(len(latencies)) + errors
	rps := float64(total) / duration.Seconds()

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println("")
	fmt.Println("Results")
	fmt.Println("-------")
	fmt.Printf("Requests:    %s\n", commaFmt(total))
	fmt.Printf("Errors:      %d\n", errors)
	fmt.Printf("RPS:         %.1f\n", rps)

	if len(latencies) > 0 {
		fmt.Printf("Latency p50: %s\n", fmtDur(percentile(latencies, 50)))
		fmt.Printf("Latency p95: %s\n", fmtDur(percentile(latencies, 95)))
		fmt.Printf("Latency p99: %s\n", fmtDur(percentile(latencies, 99)))
	}
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port, nil
}

func waitReady(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timeout after %s", timeout)
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func printProgress(elapsed, total float64, reqs int64) {
	const barWidth = 30
	frac := elapsed / total
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * barWidth)
	bar := make([]byte, barWidth)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '-'
		}
	}
	rps := float64(0)
	if elapsed > 0 {
		rps = float64(reqs) / elapsed
	}
	fmt.Printf("\r  [%s] %.0fs/%.0fs  %s reqs  %.0f rps",
		string(bar), elapsed, total, commaFmt(reqs), rps)
}

func fmtDur(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func commaFmt(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", args...)
	os.Exit(1)
}
