// cmd/enrich/main.go
//
// One-shot batch: resolve pending mint records against the chain and fill
// in collector identity fields. Meant to run on a Cloud Scheduler job.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"presale/internal/platform/di"
)

func main() {
	limit := flag.Int("limit", 100, "max records to process in one run")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cont, err := di.NewContainer(ctx)
	if err != nil {
		log.Fatalf("[enrich] di init failed: %v", err)
	}
	defer cont.Close()

	n, err := cont.Enrichment.EnrichPending(ctx, *limit)
	if err != nil {
		log.Fatalf("[enrich] run failed after %d records: %v", n, err)
	}
	log.Printf("[enrich] done: %d records enriched", n)
}
