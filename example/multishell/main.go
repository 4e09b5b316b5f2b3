// Pushes a large volume of records through the multi-shell and prints the
// sustained throughput. Bring up an ingestion server first and adjust the
// host below.
package main

import (
	"fmt"
	"log"
	"time"

	sensorshell "github.com/hackystat/hackystat-sensor-shell"
)

func main() {
	const totalRecords = 50_000

	cfg := sensorshell.NewConfig("http://localhost:9876/sensorbase", "demo@example.com", "demo")
	cfg.MultiShell.Enabled = true
	cfg.MultiShell.NumShells = 10

	shell, err := sensorshell.New(cfg, sensorshell.WithTool("perf-eval"))
	if err != nil {
		log.Fatalf("construct multi-shell: %v", err)
	}

	start := time.Now()
	for i := 0; i < totalRecords; i++ {
		err := shell.AddKeyValues(map[string]string{
			"Tool":           "Subversion",
			"SensorDataType": "Commit",
			"Resource":       fmt.Sprintf("file://repo/file-%d.txt", i),
		})
		if err != nil {
			log.Fatalf("add %d: %v", i, err)
		}
	}
	if _, err := shell.Send(); err != nil {
		log.Fatalf("send: %v", err)
	}
	if err := shell.Quit(); err != nil {
		log.Fatalf("quit: %v", err)
	}

	elapsed := time.Since(start)
	fmt.Printf("sent %d records in %v (%.2f ms/record)\n",
		shell.TotalSent(), elapsed,
		float64(elapsed.Milliseconds())/float64(totalRecords))
}
