// Package main implements matrixctl, the command-line client for matrixd.
//
// Commands:
//
//	calc        one request, optionally printing the product
//	bench       sequential requests with timing statistics
//	swarm       many concurrent virtual clients, one request each
//	stats       the server's counters from its admin endpoint
//	strategies  the partitioning strategies and their wire codes
//
// Example usage:
//
//	matrixctl calc --addr localhost:8080 --size 3 --strategy cyclic-row --print
//	matrixctl bench --size 500 --requests 20 --strategy block
//	matrixctl swarm --size 200 --clients 50
//	matrixctl stats --admin http://localhost:9090
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
