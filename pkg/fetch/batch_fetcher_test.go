package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/ree-datos/internal/testutil"
	"github.com/Sternrassler/ree-datos/pkg/client"
	"github.com/Sternrassler/ree-datos/pkg/payload"
)

func newFetcher(t *testing.T, cfg Config) *BatchFetcher {
	t.Helper()
	c, err := client.New(client.DefaultConfig())
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return NewBatchFetcher(c, cfg)
}

func descriptorsFor(t *testing.T, baseURL string, codes ...int) []Descriptor {
	t.Helper()
	var comms []Community
	for _, code := range codes {
		comms = append(comms, Community{Code: code, Name: "C" + string(rune('A'+len(comms)))})
	}
	ds, err := BuildDescriptors(baseURL+"/es/datos/demanda/evolucion", comms, []int{2023}, nil)
	if err != nil {
		t.Fatalf("BuildDescriptors() error = %v", err)
	}
	return ds
}

func TestFetchAll_PreservesOrder(t *testing.T) {
	mock := testutil.NewMockREE()
	defer mock.Close()

	// Earlier slots answer slower so completion order differs from input.
	codes := []int{4, 5, 6, 7, 8}
	for i, code := range codes {
		mock.SetGeoResponse(code, testutil.MockREEResponse{
			StatusCode: http.StatusOK,
			Body: testutil.GenerationBody(testutil.SeriesFixture{
				Type:   "Demanda",
				Values: []testutil.ValueFixture{{Value: float64(code), Percentage: 1, Datetime: "t"}},
			}),
			Delay: time.Duration(len(codes)-i) * 5 * time.Millisecond,
		})
	}

	ds := descriptorsFor(t, mock.URL(), codes...)
	results, err := newFetcher(t, DefaultConfig()).FetchAll(context.Background(), ds, nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(results) != len(ds) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(ds))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("results[%d] = nil", i)
		}
		if r.CodComunidad != ds[i].CodComunidad || r.NombreComunidad != ds[i].NombreComunidad || r.Anio != ds[i].Anio {
			t.Errorf("results[%d] metadata = %+v, want descriptor %+v", i, r, ds[i])
		}
		if len(r.Valores) != 1 || r.Valores[0].Value == nil || *r.Valores[0].Value != float64(codes[i]) {
			t.Errorf("results[%d].Valores = %+v, want value %d", i, r.Valores, codes[i])
		}
	}
	if got := mock.GetRequestCount(); got != len(ds) {
		t.Errorf("request count = %d, want %d", got, len(ds))
	}
}

func TestFetchAll_NonOKLeavesNilSlot(t *testing.T) {
	mock := testutil.NewMockREE()
	defer mock.Close()
	mock.SetGeoResponse(6, testutil.NewServerErrorResponse())
	mock.SetGeoResponse(7, testutil.NewRateLimitResponse())

	ds := descriptorsFor(t, mock.URL(), 4, 5, 6, 7, 8)
	results, err := newFetcher(t, DefaultConfig()).FetchAll(context.Background(), ds, nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	for i, r := range results {
		if i == 2 || i == 3 {
			if r != nil {
				t.Errorf("results[%d] = %+v, want nil", i, r)
			}
			continue
		}
		if r == nil {
			t.Errorf("results[%d] = nil, want populated", i)
		}
	}
}

func TestFetchAll_MissingIncludedAbortsBatch(t *testing.T) {
	mock := testutil.NewMockREE()
	defer mock.Close()
	mock.SetGeoResponse(5, testutil.NewHealthyResponse(`{"data":{}}`))

	ds := descriptorsFor(t, mock.URL(), 4, 5, 6)
	results, err := newFetcher(t, DefaultConfig()).FetchAll(context.Background(), ds, nil)
	if err == nil {
		t.Fatal("expected batch to abort")
	}
	if results != nil {
		t.Errorf("results = %v, want nil on abort", results)
	}

	if !errors.Is(err, payload.ErrFieldMissing) {
		t.Errorf("errors.Is(err, ErrFieldMissing) = false: %v", err)
	}

	var fieldErr *payload.FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Path != "included" {
		t.Errorf("FieldError path = %v, want included", fieldErr)
	}

	var descErr *DescriptorError
	if !errors.As(err, &descErr) {
		t.Fatalf("expected *DescriptorError, got %T", err)
	}
	if descErr.Index != 1 || descErr.URL != ds[1].URL {
		t.Errorf("DescriptorError = %+v, want index 1", descErr)
	}
}

func TestFetchAll_TransportErrorAbortsBatch(t *testing.T) {
	mock := testutil.NewMockREE()
	ds := descriptorsFor(t, mock.URL(), 4, 5)
	mock.Close()

	_, err := newFetcher(t, DefaultConfig()).FetchAll(context.Background(), ds, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}

	var reqErr *client.RequestError
	if !errors.As(err, &reqErr) || reqErr.Class != client.ErrorClassNetwork {
		t.Errorf("expected network *client.RequestError, got %v", err)
	}
}

func TestFetchAll_MalformedJSONAbortsBatch(t *testing.T) {
	mock := testutil.NewMockREE()
	defer mock.Close()
	mock.SetGeoResponse(4, testutil.NewHealthyResponse(`{"included":`))

	ds := descriptorsFor(t, mock.URL(), 4)
	if _, err := newFetcher(t, DefaultConfig()).FetchAll(context.Background(), ds, nil); err == nil {
		t.Error("expected decode error")
	}
}

func TestFetchAll_EmptyAndInvalid(t *testing.T) {
	bf := newFetcher(t, DefaultConfig())

	if _, err := bf.FetchAll(context.Background(), nil, nil); !errors.Is(err, ErrNoDescriptors) {
		t.Errorf("empty batch error = %v, want ErrNoDescriptors", err)
	}

	bad := []Descriptor{{URL: "not a url", NombreComunidad: "X", Anio: 2023}}
	if _, err := bf.FetchAllGeneration(context.Background(), bad, nil); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("invalid descriptor error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestFetchAll_ForwardsHeaders(t *testing.T) {
	mock := testutil.NewMockREE()
	defer mock.Close()

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("X-Test", "1")

	ds := descriptorsFor(t, mock.URL(), 4)
	if _, err := newFetcher(t, DefaultConfig()).FetchAll(context.Background(), ds, headers); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if got := mock.GetLastRequestHeader().Get("X-Test"); got != "1" {
		t.Errorf("X-Test = %q, want 1", got)
	}
}

func TestFetchAllGeneration_Categorizes(t *testing.T) {
	mock := testutil.NewMockREE()
	defer mock.Close()
	mock.SetGeoResponse(4, testutil.NewHealthyResponse(
		`{"included":[{"type":"A","attributes":{"values":[{"value":1,"percentage":10,"datetime":"t1"}],"color":"red","title":"T","last-update":"u"}}]}`))
	mock.SetGeoResponse(5, testutil.NewNotFoundResponse())

	ds := descriptorsFor(t, mock.URL(), 4, 5)
	results, err := newFetcher(t, DefaultConfig()).FetchAllGeneration(context.Background(), ds, nil)
	if err != nil {
		t.Fatalf("FetchAllGeneration() error = %v", err)
	}

	if results[1] != nil {
		t.Errorf("results[1] = %+v, want nil", results[1])
	}
	r := results[0]
	if r == nil {
		t.Fatal("results[0] = nil")
	}

	got, err := r.Categorias.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"A":[{"valor":1,"porcentaje":10,"fecha":"t1","color":"red","title":"T","last-update":"u"}]}`
	if string(got) != want {
		t.Errorf("categorias = %s, want %s", got, want)
	}
	if r.CodComunidad != 4 || r.Anio != 2023 {
		t.Errorf("metadata = %+v", r)
	}
}

func TestFetchAllGeneration_MissingTypeAbortsBatch(t *testing.T) {
	mock := testutil.NewMockREE()
	defer mock.Close()
	mock.SetGeoResponse(4, testutil.NewHealthyResponse(`{"included":[{"attributes":{"values":[]}}]}`))

	ds := descriptorsFor(t, mock.URL(), 4)
	_, err := newFetcher(t, DefaultConfig()).FetchAllGeneration(context.Background(), ds, nil)

	var fieldErr *payload.FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Path != "included[0].type" {
		t.Errorf("error = %v, want missing included[0].type", err)
	}
}

type countingGetter struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *countingGetter) Get(ctx context.Context, url string, headers http.Header) (*client.Response, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return &client.Response{StatusCode: http.StatusOK, Body: []byte(`{"included":[{"type":"A","attributes":{"values":[]}}]}`)}, nil
}

func TestFetchAll_MaxConcurrency(t *testing.T) {
	getter := &countingGetter{}
	bf := NewBatchFetcher(getter, Config{MaxConcurrency: 2})

	ds := descriptorsFor(t, "http://example.test", 4, 5, 6, 7, 8, 9)
	results, err := bf.FetchAll(context.Background(), ds, nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(results) != 6 {
		t.Errorf("len(results) = %d, want 6", len(results))
	}
	if peak := getter.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestFetchAll_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockREE()
	defer mock.Close()
	mock.SetGeoResponse(4, testutil.MockREEResponse{StatusCode: http.StatusOK, Body: `{}`, Delay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ds := descriptorsFor(t, mock.URL(), 4)
	if _, err := newFetcher(t, DefaultConfig()).FetchAll(ctx, ds, nil); err == nil {
		t.Error("expected error after context deadline")
	}
}
