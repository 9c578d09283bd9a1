package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/ree-datos/pkg/client"
	"github.com/Sternrassler/ree-datos/pkg/payload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ree_batch_duration_seconds",
		Help:    "Duration of a fetch batch by variant",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"variant"})

	descriptorResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ree_descriptor_results_total",
		Help: "Descriptor outcomes by variant (ok, non_ok, error)",
	}, []string{"variant", "outcome"})
)

const (
	variantFlat       = "flat"
	variantGeneration = "generation"
	outcomeOK         = "ok"
	outcomeNonOK      = "non_ok"
	outcomeError      = "error"
	progressLogEveryN = 50
)

// Getter is the single-request surface the batch fetcher needs.
// *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, url string, headers http.Header) (*client.Response, error)
}

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency bounds in-flight requests; 0 means one goroutine per
	// descriptor.
	MaxConcurrency int

	// Timeout per request; 0 means none beyond the client's.
	Timeout time.Duration
}

// DefaultConfig returns the unbounded, no-timeout configuration.
func DefaultConfig() Config {
	return Config{}
}

// BatchFetcher fans a descriptor list out over one shared client.
type BatchFetcher struct {
	getter Getter
	config Config
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher(getter Getter, config Config) *BatchFetcher {
	if config.MaxConcurrency < 0 {
		config.MaxConcurrency = 0
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}
	return &BatchFetcher{
		getter: getter,
		config: config,
	}
}

// FetchAll fetches every descriptor and extracts included[0].attributes.values.
//
// The returned slice has one slot per descriptor, in order; a slot is nil
// when its response was not 200.
func (bf *BatchFetcher) FetchAll(ctx context.Context, descriptors []Descriptor, headers http.Header) ([]*FlatResult, error) {
	results := make([]*FlatResult, len(descriptors))
	err := bf.run(ctx, variantFlat, descriptors, headers, func(i int, d Descriptor, doc *payload.Document) error {
		values, err := doc.FirstValues()
		if err != nil {
			return err
		}
		results[i] = &FlatResult{
			Valores:         values,
			CodComunidad:    d.CodComunidad,
			NombreComunidad: d.NombreComunidad,
			Anio:            d.Anio,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FetchAllGeneration fetches every descriptor and groups included[*] by type.
// Slot semantics match FetchAll.
func (bf *BatchFetcher) FetchAllGeneration(ctx context.Context, descriptors []Descriptor, headers http.Header) ([]*CategorizedResult, error) {
	results := make([]*CategorizedResult, len(descriptors))
	err := bf.run(ctx, variantGeneration, descriptors, headers, func(i int, d Descriptor, doc *payload.Document) error {
		categories, err := doc.Categorize()
		if err != nil {
			return err
		}
		results[i] = &CategorizedResult{
			Categorias:      categories,
			CodComunidad:    d.CodComunidad,
			NombreComunidad: d.NombreComunidad,
			Anio:            d.Anio,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// extractFunc fills slot i from a decoded 200 response.
type extractFunc func(i int, d Descriptor, doc *payload.Document) error

func (bf *BatchFetcher) run(ctx context.Context, variant string, descriptors []Descriptor, headers http.Header, extract extractFunc) error {
	if len(descriptors) == 0 {
		return ErrNoDescriptors
	}
	for i, d := range descriptors {
		if err := d.Validate(); err != nil {
			return &DescriptorError{Index: i, URL: d.URL, Err: err}
		}
	}

	start := time.Now()
	defer func() {
		batchDuration.WithLabelValues(variant).Observe(time.Since(start).Seconds())
	}()

	log.Info().
		Str("variant", variant).
		Int("descriptors", len(descriptors)).
		Int("max_concurrency", bf.config.MaxConcurrency).
		Msg("Starting batch fetch")

	g, gctx := errgroup.WithContext(ctx)
	if bf.config.MaxConcurrency > 0 {
		g.SetLimit(bf.config.MaxConcurrency)
	}

	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			// A sibling already failed; its error wins.
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := bf.fetchOne(gctx, variant, i, d, headers, extract); err != nil {
				descriptorResults.WithLabelValues(variant, outcomeError).Inc()
				return &DescriptorError{Index: i, URL: d.URL, Err: err}
			}
			if (i+1)%progressLogEveryN == 0 {
				log.Debug().
					Str("variant", variant).
					Int("index", i).
					Int("total", len(descriptors)).
					Msg("Fetch progress")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn().
			Err(err).
			Str("variant", variant).
			Dur("duration", time.Since(start)).
			Msg("Batch fetch aborted")
		return err
	}

	log.Info().
		Str("variant", variant).
		Int("descriptors", len(descriptors)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")
	return nil
}

func (bf *BatchFetcher) fetchOne(ctx context.Context, variant string, i int, d Descriptor, headers http.Header, extract extractFunc) error {
	if bf.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bf.config.Timeout)
		defer cancel()
	}

	resp, err := bf.getter.Get(ctx, d.URL, headers)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		descriptorResults.WithLabelValues(variant, outcomeNonOK).Inc()
		log.Warn().
			Str("url", d.URL).
			Int("cod_comunidad", d.CodComunidad).
			Str("nombre_comunidad", d.NombreComunidad).
			Int("anio", d.Anio).
			Int("status", resp.StatusCode).
			Msg("Non-OK response, leaving slot empty")
		return nil
	}

	doc, err := payload.Decode(resp.Body)
	if err != nil {
		return err
	}
	if err := extract(i, d, doc); err != nil {
		return err
	}

	descriptorResults.WithLabelValues(variant, outcomeOK).Inc()
	return nil
}
