// Ping the odds service's data providers to measure network latency.
//
// Measures cold-start and warm keep-alive round trips against the ESPN
// scoreboard, the nflverse flat files and TheSportsDB, and optionally the
// WebSocket ping/pong latency of a running squares service.
//
// Usage:
//
//	go run ./ping_services                    # default: 20 requests
//	go run ./ping_services -n 50              # 50 requests per endpoint
//	go run ./ping_services -ws localhost:8088 # also test the fanout socket
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/squares-odds/internal/config"
)

const httpTimeout = 10 * time.Second

type endpoint struct {
	label  string
	method string
	url    string
}

func main() {
	n := flag.Int("n", 20, "Number of requests per endpoint")
	wsAddr := flag.String("ws", "", "host:port of a running squares service for WebSocket ping/pong")
	flag.Parse()

	cfg := config.Load()

	endpoints := []endpoint{
		{label: "ESPN scoreboard", method: http.MethodGet, url: strings.TrimRight(cfg.ESPNBaseURL, "/") + "/scoreboard"},
		// The flat files are large; HEAD keeps the probe to headers only.
		{label: "nflverse games", method: http.MethodHead, url: cfg.GamesURL},
		{label: "nflverse moneylines", method: http.MethodHead, url: cfg.MoneylineURL},
		{label: "TheSportsDB search", method: http.MethodGet, url: strings.TrimRight(cfg.SportsDBBaseURL, "/") + "/searchteams.php?t=" + url.QueryEscape("Kansas City Chiefs")},
	}

	fmt.Println("\nPinging data providers")
	for _, ep := range endpoints {
		pingEndpoint(ep, *n)
	}
	if *wsAddr != "" {
		pingFanout(*wsAddr, *n)
	}
	fmt.Println()
}

func pingEndpoint(ep endpoint, n int) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 55))
	fmt.Printf("  %s\n", strings.ToUpper(ep.label))
	fmt.Printf("%s\n", strings.Repeat("=", 55))
	fmt.Printf("\n  Endpoint: %s %s\n", ep.method, ep.url)

	fmt.Println("\n  Cold-start request (DNS + TLS + HTTP):")
	if ms, code, err := measureHTTP(ep, nil); err != nil {
		fmt.Printf("    FAILED: %v\n", err)
	} else {
		fmt.Printf("    %.1f ms  (HTTP %d)\n", ms, code)
	}

	fmt.Printf("\n  Warm HTTP latency (%d requests, keep-alive):\n", n)
	client := &http.Client{Timeout: httpTimeout}
	if _, _, err := measureHTTP(ep, client); err != nil {
		fmt.Printf("  [!] Warm-up request failed: %v\n", err)
		return
	}
	latencies := make([]float64, 0, n)
	pad := len(fmt.Sprintf("%d", n))
	for i := 1; i <= n; i++ {
		ms, code, err := measureHTTP(ep, client)
		if err != nil {
			fmt.Printf("  [%*d/%d]  FAILED: %v\n", pad, i, n, err)
			continue
		}
		latencies = append(latencies, ms)
		fmt.Printf("  [%*d/%d]  %7.1f ms  (HTTP %d)\n", pad, i, n, ms, code)
	}
	printStats(latencies, ep.label)
}

func measureHTTP(ep endpoint, client *http.Client) (ms float64, statusCode int, err error) {
	req, err := http.NewRequest(ep.method, ep.url, nil)
	if err != nil {
		return 0, 0, err
	}
	c := client
	if c == nil {
		c = &http.Client{Timeout: httpTimeout}
	}
	start := time.Now()
	resp, err := c.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	return float64(elapsed.Microseconds()) / 1000, resp.StatusCode, nil
}

// pingFanout opens a viewer socket on a running service and times control
// frame round trips. The matchup only needs to resolve; no game has to be live.
func pingFanout(addr string, n int) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 55))
	fmt.Printf("  SQUARES FANOUT (%s)\n", addr)
	fmt.Printf("%s\n", strings.Repeat("=", 55))

	q := url.Values{}
	q.Set("home", "KC")
	q.Set("away", "BUF")
	wsURL := fmt.Sprintf("ws://%s/ws?%s", addr, q.Encode())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		fmt.Printf("  [!] WebSocket dial failed: %v\n", err)
		return
	}
	defer conn.Close()

	pongCh := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pongCh <- struct{}{}:
		default:
		}
		return nil
	})

	// Control frames are only processed while a read is pending.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	fmt.Printf("\n  WebSocket ping/pong latency (%d pings):\n", n)
	latencies := make([]float64, 0, n)
	pad := len(fmt.Sprintf("%d", n))
	for i := 1; i <= n; i++ {
		start := time.Now()
		if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(5*time.Second)); err != nil {
			fmt.Printf("  [!] WS ping failed: %v\n", err)
			break
		}
		select {
		case <-pongCh:
			ms := float64(time.Since(start).Microseconds()) / 1000
			latencies = append(latencies, ms)
			fmt.Printf("  [%*d/%d]  %7.1f ms  (WS ping/pong)\n", pad, i, n, ms)
		case <-time.After(5 * time.Second):
			fmt.Printf("  [!] WS pong timeout\n")
			printStats(latencies, "Fanout WebSocket")
			return
		}
	}
	printStats(latencies, "Fanout WebSocket")
}

type latencyStats struct {
	n                           int
	min, max, mean, median, std float64
	p95, p99                    float64
}

func summarize(samples []float64) latencyStats {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	st := latencyStats{n: len(sorted), min: sorted[0], max: sorted[len(sorted)-1], median: sorted[len(sorted)/2]}
	for _, v := range sorted {
		st.mean += v
	}
	st.mean /= float64(st.n)
	for _, v := range sorted {
		st.std += (v - st.mean) * (v - st.mean)
	}
	st.std = math.Sqrt(st.std / float64(st.n-1))
	st.p95 = sorted[percentileIndex(st.n, 0.95)]
	st.p99 = sorted[percentileIndex(st.n, 0.99)]
	return st
}

func printStats(latencies []float64, label string) {
	if len(latencies) < 2 {
		fmt.Printf("\n  Not enough %s samples for statistics.\n", label)
		return
	}
	st := summarize(latencies)
	fmt.Printf("\n  --- %s (%d samples) ---\n", label, st.n)
	fmt.Printf("  min %.1f  median %.1f  mean %.1f ± %.1f  p95 %.1f  p99 %.1f  max %.1f  (ms)\n",
		st.min, st.median, st.mean, st.std, st.p95, st.p99, st.max)
}

func percentileIndex(n int, p float64) int {
	return min(int(float64(n)*p), n-1)
}
