package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const (
	variantFlat       = "fetch"
	variantGeneration = "generation"
)

type options struct {
	envFile     string
	metricsAddr string

	endpoint    string
	years       []int
	communities []int
	descriptors string
	table       string
	dryRun      bool
	jsonOut     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "ree-loader",
		Short:        "Fetch REE electricity data and load it into PostgreSQL",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load (ignored if missing)")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address while running")

	root.AddCommand(
		newLoadCmd(opts, variantFlat, "Load the first series of each response (included[0].attributes.values)", "ree_valores"),
		newLoadCmd(opts, variantGeneration, "Load every series of each response grouped by type", "ree_generacion"),
	)
	return root
}

// newLoadCmd binds its flags to its own options; the persistent ones are
// copied from root at run time.
func newLoadCmd(root *options, variant, short, defaultTable string) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   variant,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := *opts
			o.envFile = root.envFile
			o.metricsAddr = root.metricsAddr
			return run(cmd.Context(), variant, o, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.endpoint, "endpoint", "", "apidatos widget URL (default REE_ENDPOINT)")
	f.IntSliceVar(&opts.years, "years", []int{time.Now().Year() - 1}, "years to fetch")
	f.IntSliceVar(&opts.communities, "communities", nil, "REE geo ids to fetch (default all communities)")
	f.StringVar(&opts.descriptors, "descriptors", "", "JSON file with descriptors; overrides --endpoint/--years/--communities")
	f.StringVar(&opts.table, "table", defaultTable, "destination table")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the INSERT script instead of writing to the database")
	f.BoolVar(&opts.jsonOut, "json", false, "print the fetched results as JSON instead of writing to the database")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "json")
	return cmd
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
