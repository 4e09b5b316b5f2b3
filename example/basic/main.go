// Queues a couple of development events programmatically and sends them.
package main

import (
	"fmt"
	"log"

	sensorshell "github.com/hackystat/hackystat-sensor-shell"
)

func main() {
	cfg := sensorshell.NewConfig("http://localhost:9876/sensorbase", "demo@example.com", "demo")

	shell, err := sensorshell.New(cfg, sensorshell.WithTool("example"))
	if err != nil {
		log.Fatalf("construct shell: %v", err)
	}
	defer shell.Quit()

	events := []map[string]string{
		{"Tool": "Eclipse", "SensorDataType": "DevEvent", "DevEvent-Type": "Compile", "Resource": "file://src/Main.java"},
		{"Tool": "Eclipse", "SensorDataType": "DevEvent", "DevEvent-Type": "Test", "Resource": "file://src/MainTest.java"},
	}
	for _, ev := range events {
		if err := shell.AddKeyValues(ev); err != nil {
			log.Fatalf("add: %v", err)
		}
	}

	sent, err := shell.Send()
	if err != nil {
		log.Fatalf("send: %v", err)
	}
	fmt.Printf("sent %d records (offline data spooled: %v)\n", sent, shell.HasOfflineData())
}
