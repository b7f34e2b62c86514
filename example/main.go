// Command example creates a file backed hash map, stores, reads and removes a few records and prints statistics.
//
//	go run ./example [-config exthashmap.toml] [-name /tmp/example-map]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/gostonefire/exthashmap"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "optional TOML config file")
	name := flag.String("name", "example-map", "directory of the file store, used if the config file names none")
	records := flag.Int("records", 10000, "number of records to insert")
	verbose := flag.Bool("v", false, "log structural changes")
	flag.Parse()

	conf := exthashmap.DefaultConfig()
	if *configFile != "" {
		var err error
		if conf, err = exthashmap.LoadConfigFile(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	if conf.Name == "" {
		conf.Name = *name
	}
	conf.ShrinkEnabled = true

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		defer func() { _ = logger.Sync() }()
		conf.Logger = logger
	}

	m, info, err := exthashmap.NewExtHashMap(conf)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = m.RemoveFiles() }()

	fmt.Printf("created %s: bucket capacity %d, digest width %d, hash %s\n",
		conf.Name, info.BucketCapacity, info.DigestWidth, info.HashAlgorithm)

	for i := 0; i < *records; i++ {
		if err = m.Insert([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			log.Fatal(err)
		}
	}

	value, err := m.Get([]byte("key-42"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("key-42 -> %s\n", value)

	for i := 0; i < *records; i += 2 {
		if _, err = m.Remove([]byte(fmt.Sprintf("key-%d", i))); err != nil {
			log.Fatal(err)
		}
	}

	if _, err = m.Get([]byte("key-42")); errors.Is(err, exthashmap.NoRecordFound{}) {
		fmt.Println("key-42 removed")
	}

	stat, err := m.Stat(false)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("records %d, pages %d, buckets %d, global depth %d, fill factor %.2f\n",
		stat.Records, stat.Pages, stat.Buckets, stat.GlobalDepth, stat.AverageBucketFillFactor)
}
