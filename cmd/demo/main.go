package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mnohosten/lsmkv/pkg/lsm"
)

func main() {
	fmt.Println("=== lsmkv Demo ===")
	fmt.Println()

	dataDir := "./lsm-data"
	os.RemoveAll(dataDir)
	defer os.RemoveAll(dataDir)

	demoBasicOperations(dataDir)
	demoWriteHeavy(dataDir + "-write")
	demoPersistence(dataDir + "-persist")
	demoMergeCascade(dataDir + "-merge")

	fmt.Println("\n=== Demo Complete ===")
}

func demoBasicOperations(dir string) {
	fmt.Println("Demo 1: Basic Table Operations")
	fmt.Println("-------------------------------")

	table, err := lsm.Open(lsm.DefaultConfig(dir))
	if err != nil {
		log.Fatal(err)
	}
	defer table.Close()

	fmt.Println("Inserting key-value pairs...")
	pairs := map[string]string{
		"name":    "lsmkv",
		"type":    "LSM-Tree",
		"version": "1.0",
		"author":  "demo",
	}
	for key, value := range pairs {
		if err := table.Insert(key, value); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  INSERT %s = %s\n", key, value)
	}

	fmt.Println("\nRetrieving values...")
	for key := range pairs {
		value, found, err := table.Get(key)
		if err != nil {
			log.Fatal(err)
		}
		if found {
			fmt.Printf("  GET %s = %s\n", key, value)
		} else {
			fmt.Printf("  GET %s = NOT FOUND\n", key)
		}
	}

	fmt.Println("\nDeleting 'version' key...")
	if err := table.Delete("version"); err != nil {
		log.Fatal(err)
	}
	value, found, _ := table.Get("version")
	fmt.Printf("  GET version = found:%v, value:%s\n", found, value)

	fmt.Println()
}

func demoWriteHeavy(dir string) {
	fmt.Println("Demo 2: Write-Heavy Workload")
	fmt.Println("-----------------------------")

	config := lsm.DefaultConfig(dir)
	config.MemtableCapacity = 200
	table, err := lsm.Open(config)
	if err != nil {
		log.Fatal(err)
	}
	defer table.Close()

	numKeys := 1000
	fmt.Printf("Inserting %d keys...\n", numKeys)
	start := time.Now()
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("user:%06d", i)
		value := fmt.Sprintf("data-for-user-%06d", i)
		if err := table.Insert(key, value); err != nil {
			log.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("Inserted %d keys in %v\n", numKeys, elapsed)
	fmt.Printf("Throughput: %.0f writes/sec\n", float64(numKeys)/elapsed.Seconds())

	fmt.Println("\nForcing a final flush...")
	if err := table.Flush(); err != nil {
		log.Fatal(err)
	}

	fmt.Println("\nReading sample keys...")
	for _, key := range []string{"user:000000", "user:000500", "user:000999"} {
		if value, found, _ := table.Get(key); found {
			fmt.Printf("  %s = %s\n", key, value)
		}
	}

	fmt.Println()
}

func demoPersistence(dir string) {
	fmt.Println("Demo 3: Persistence and Recovery")
	fmt.Println("----------------------------------")

	config := lsm.DefaultConfig(dir)
	table, err := lsm.Open(config)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Writing data...")
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("persistent-key-%03d", i)
		value := fmt.Sprintf("value-%03d", i)
		if err := table.Insert(key, value); err != nil {
			log.Fatal(err)
		}
	}

	if err := table.Flush(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Closing table...")
	if err := table.Close(); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Reopening table...")
	table, err = lsm.Open(config)
	if err != nil {
		log.Fatal(err)
	}
	defer table.Close()

	fmt.Println("\nVerifying persisted data...")
	for _, key := range []string{"persistent-key-000", "persistent-key-050", "persistent-key-099"} {
		if value, found, _ := table.Get(key); found {
			fmt.Printf("  %s = %s\n", key, value)
		} else {
			fmt.Printf("  %s NOT FOUND\n", key)
		}
	}

	fmt.Println()
}

func demoMergeCascade(dir string) {
	fmt.Println("Demo 4: Merge Cascade")
	fmt.Println("----------------------")

	config := lsm.Config{Directory: dir, Fanout: 4, MemtableCapacity: 50}
	table, err := lsm.Open(config)
	if err != nil {
		log.Fatal(err)
	}
	defer table.Close()

	fmt.Println("Inserting data to trigger flushes and merges...")
	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("metric:%04d", i)
		value := fmt.Sprintf("measurement-%04d-with-some-data", i)
		if err := table.Insert(key, value); err != nil {
			log.Fatal(err)
		}
	}
	if err := table.Flush(); err != nil {
		log.Fatal(err)
	}

	got, err := table.Range("metric:0000", "metric:0499")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Range scan after merges returned %d live entries\n", len(got))

	fmt.Println("\nArchitecture:")
	fmt.Println("  Write path:  memtable -> flush -> level0 component")
	fmt.Println("  Read path:   memtable -> level0 -> level1 -> ... (newest component first)")
	fmt.Println("  Compaction:  k-way merge collapses an overflowing level into the next")
	fmt.Println("  Bloom filters skip a component's binary search for absent keys")

	fmt.Println()
}
