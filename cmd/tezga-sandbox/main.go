// tezga-sandbox runs an in-memory mock of the Tezga marketplace API so SDK
// consumers can develop against realistic endpoints without the production
// backend.
package main

import (
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Local overrides (ports, seeds) may live in a .env next to the binary.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "tezga-sandbox",
		Short: "In-memory mock of the Tezga marketplace API",
	}

	var (
		addr     string
		latency  time.Duration
		failRate float64
		failCode int
		seed     int64
	)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env := os.Getenv("TEZGA_SANDBOX_ADDR"); env != "" && !cmd.Flags().Changed("addr") {
				addr = env
			}
			rng := rand.New(rand.NewSource(seed))
			srv := newServer(serverOptions{
				latency:  latency,
				failRate: failRate,
				failCode: failCode,
				rng:      rng,
			})
			log.Printf("tezga-sandbox listening on %s (base path /api)", addr)
			return srv.Run(addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", ":8585", "listen address")
	serve.Flags().DurationVar(&latency, "latency", 0, "artificial latency injected per request")
	serve.Flags().Float64Var(&failRate, "fail-rate", 0, "probability of injecting a failure response")
	serve.Flags().IntVar(&failCode, "fail-code", 500, "status code used for injected failures")
	serve.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed for IDs and failure injection")

	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
