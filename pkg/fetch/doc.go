// Package fetch runs concurrent batches of REE apidatos requests.
//
// Each batch is a list of descriptors (URL plus community/year metadata).
// All requests share one client and run in an errgroup; every goroutine
// writes only its own slot so results come back in descriptor order.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig())
//	bf := fetch.NewBatchFetcher(c, fetch.DefaultConfig())
//	descriptors, _ := fetch.BuildDescriptors(endpoint, fetch.Communities(), []int{2023}, nil)
//	results, err := bf.FetchAllGeneration(ctx, descriptors, nil)
//
// Error policy:
//   - Non-200 responses are logged and leave a nil slot; the batch continues
//   - Missing payload fields and transport failures abort the batch and
//     cancel the remaining requests
package fetch
