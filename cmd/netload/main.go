// Package main implements the netload command.
// netload runs HTTP load tests and monitors target latency for anomalies.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("[netload] %v", err)
		os.Exit(1)
	}
}
