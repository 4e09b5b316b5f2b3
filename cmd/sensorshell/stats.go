package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// statMetrics are the shell samples worth watching live, in display order.
var statMetrics = []struct {
	name  string
	label string
}{
	{"sensorshell_records_sent_total", "sent"},
	{"sensorshell_records_spooled_total", "spooled"},
	{"sensorshell_send_errors_total", "errors"},
	{"sensorshell_buffer_length", "buffered"},
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	endpoint := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	every := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Watching %s every %v (Ctrl+C to stop)\n", *endpoint, *every)
	for {
		values, err := scrapeStatMetrics(ctx, *endpoint)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stats: %v\n", err)
		} else {
			fmt.Println(formatSnapshot(values))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(*every):
		}
	}
}

// scrapeStatMetrics fetches the exposition text once and picks out the
// samples named in statMetrics.
func scrapeStatMetrics(ctx context.Context, endpoint string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, endpoint)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseStatMetrics(string(body)), nil
}

func parseStatMetrics(exposition string) map[string]float64 {
	values := make(map[string]float64, len(statMetrics))
	for _, line := range strings.Split(exposition, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		if !wantedMetric(name) {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64); err == nil {
			values[name] = v
		}
	}
	return values
}

func wantedMetric(name string) bool {
	for _, m := range statMetrics {
		if m.name == name {
			return true
		}
	}
	return false
}

// formatSnapshot renders one line per poll, labels in statMetrics order.
// Samples absent from the scrape print as zero.
func formatSnapshot(values map[string]float64) string {
	parts := make([]string, 0, len(statMetrics)+1)
	parts = append(parts, time.Now().Format("15:04:05"))
	for _, m := range statMetrics {
		parts = append(parts, fmt.Sprintf("%s=%.0f", m.label, values[m.name]))
	}
	return strings.Join(parts, " ")
}
