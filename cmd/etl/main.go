// Command emissions-etl loads a greenhouse-gas inventory CSV, applies the GWP
// and damage weightings and hands the result to a report, dashboard, HTTP API,
// file exports or a Kafka topic.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
