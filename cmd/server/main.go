package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mnohosten/lsmkv/pkg/server"
)

func main() {
	host := flag.String("host", "localhost", "Server host address")
	port := flag.Int("port", 8080, "Server port")
	dataDir := flag.String("data-dir", "./data", "Table directory for persistent storage")
	fanout := flag.Int("fanout", 10, "Per-level component fanout before a merge is triggered")
	memtableCapacity := flag.Int("memtable-capacity", 1000, "Records held in the memtable before a flush")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin")
	flag.Parse()

	config := server.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.Directory = *dataDir
	config.Fanout = *fanout
	config.MemtableCapacity = *memtableCapacity
	config.AllowedOrigins = []string{*corsOrigin}

	srv, err := server.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
