package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

const calculatorLocator = "http://services.example.com/calculator?wsdl"

// countingFetcher serves the calculator descriptor and counts fetches.
type countingFetcher struct {
	data  []byte
	err   error
	calls atomic.Int64
}

func (f *countingFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func newCountingFetcher(t *testing.T) *countingFetcher {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "wsdl", "testdata", "calculator.wsdl"))
	if err != nil {
		t.Fatalf("read calculator.wsdl: %v", err)
	}
	return &countingFetcher{data: data}
}

func TestResolveWithoutLocator(t *testing.T) {
	f := newCountingFetcher(t)
	r := New(wsdl.NewLoader(f))

	res, err := r.Resolve(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Operations == nil || !res.Operations.Disabled {
		t.Fatalf("expected disabled dropdown, got %+v", res.Operations)
	}
	if res.Operations.Placeholder != PlaceholderNoLocator {
		t.Errorf("expected placeholder %q, got %q", PlaceholderNoLocator, res.Operations.Placeholder)
	}
	if len(res.Operations.Options) != 0 {
		t.Errorf("expected no options, got %v", res.Operations.Options)
	}

	fields, err := r.Fields(context.Background(), "", "", "Add")
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("expected empty field set, got %v", fields)
	}
	if n := f.calls.Load(); n != 0 {
		t.Errorf("expected no fetch without locator, got %d", n)
	}
}

func TestResolveOperations(t *testing.T) {
	r := New(wsdl.NewLoader(newCountingFetcher(t)))
	res, err := r.Resolve(context.Background(), Request{Locator: calculatorLocator})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Operations.Disabled {
		t.Error("expected enabled dropdown")
	}
	if got, want := res.Operations.Values(), []string{"Add", "Divide"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected operations %v, got %v", want, got)
	}
	for _, opt := range res.Operations.Options {
		if opt.Label != opt.Value {
			t.Errorf("expected label to equal value, got %+v", opt)
		}
	}
}

func TestResolveFields(t *testing.T) {
	r := New(wsdl.NewLoader(newCountingFetcher(t)))
	res, err := r.Resolve(context.Background(), Request{Locator: calculatorLocator, Operation: "Divide"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got, want := res.Fields.Keys(), []string{"dividend", "divisor", "rounding"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected fields %v, got %v", want, got)
	}
	for name, def := range res.Fields {
		if def.Key != name || def.Label != name {
			t.Errorf("expected key and label %q, got %+v", name, def)
		}
	}
	if res.Fields["rounding"].Required {
		t.Error("expected optional field rounding not to be required")
	}
	if !res.Fields["dividend"].Required {
		t.Error("expected dividend to be required")
	}
}

func TestResolveUnknownOperation(t *testing.T) {
	r := New(wsdl.NewLoader(newCountingFetcher(t)))
	_, err := r.Resolve(context.Background(), Request{Locator: calculatorLocator, Operation: "Multiply"})
	if !errors.Is(err, wsdl.ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestResolveFetchErrorPropagates(t *testing.T) {
	f := &countingFetcher{err: wsdl.ErrFetch}
	r := New(wsdl.NewLoader(f))
	_, err := r.Resolve(context.Background(), Request{Locator: calculatorLocator})
	if !errors.Is(err, wsdl.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("expected exactly one fetch attempt, got %d", n)
	}
}

func TestResolveWithoutSessionFetchesFresh(t *testing.T) {
	f := newCountingFetcher(t)
	r := New(wsdl.NewLoader(f), WithCache(NewMemoryCache(), time.Minute))
	ctx := context.Background()

	for range 3 {
		if _, err := r.Operations(ctx, "", calculatorLocator); err != nil {
			t.Fatalf("Operations failed: %v", err)
		}
	}
	if n := f.calls.Load(); n != 3 {
		t.Errorf("expected 3 fetches, got %d", n)
	}
}

func TestResolveSessionCachesCatalog(t *testing.T) {
	f := newCountingFetcher(t)
	r := New(wsdl.NewLoader(f), WithCache(NewMemoryCache(), time.Minute))
	ctx := context.Background()

	if _, err := r.Operations(ctx, "s1", calculatorLocator); err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if _, err := r.Fields(ctx, "s1", calculatorLocator, "Add"); err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Fatalf("expected one fetch within a session, got %d", n)
	}

	if _, err := r.Operations(ctx, "s2", calculatorLocator); err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if n := f.calls.Load(); n != 2 {
		t.Fatalf("expected a separate fetch for another session, got %d", n)
	}

	if err := r.Invalidate(ctx, "s1"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := r.Operations(ctx, "s1", calculatorLocator); err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if n := f.calls.Load(); n != 3 {
		t.Errorf("expected refetch after invalidation, got %d", n)
	}
}

func TestResolveSessionDeduplicatesConcurrentLoads(t *testing.T) {
	f := newCountingFetcher(t)
	r := New(wsdl.NewLoader(f), WithCache(NewMemoryCache(), time.Minute))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Operations(context.Background(), "s1", calculatorLocator); err != nil {
				t.Errorf("Operations failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := f.calls.Load(); n < 1 || n > 8 {
		t.Errorf("unexpected fetch count %d", n)
	}
	if _, err := r.Operations(context.Background(), "s1", calculatorLocator); err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	before := f.calls.Load()
	if _, err := r.Operations(context.Background(), "s1", calculatorLocator); err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if f.calls.Load() != before {
		t.Error("expected cached catalog after concurrent load")
	}
}

// gatedFetcher blocks every fetch until release is closed or the fetch
// context ends.
type gatedFetcher struct {
	data    []byte
	started chan struct{}
	release chan struct{}
	calls   atomic.Int64
}

func (f *gatedFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
	}
	select {
	case <-f.release:
		return f.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestResolveSessionSharedLoadSurvivesCallerCancel(t *testing.T) {
	f := &gatedFetcher{
		data:    newCountingFetcher(t).data,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := New(wsdl.NewLoader(f), WithCache(NewMemoryCache(), time.Minute))

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Operations(ctxA, "s1", calculatorLocator)
		errA <- err
	}()
	<-f.started

	errB := make(chan error, 1)
	go func() {
		_, err := r.Operations(context.Background(), "s1", calculatorLocator)
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
	}

	close(f.release)
	select {
	case err := <-errB:
		if err != nil {
			t.Fatalf("expected the other caller to succeed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not return")
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("expected one shared fetch, got %d", n)
	}
}

func TestResolveSessionLoadTimeout(t *testing.T) {
	f := &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
	r := New(wsdl.NewLoader(f), WithCache(NewMemoryCache(), time.Minute), WithLoadTimeout(20*time.Millisecond))

	_, err := r.Operations(context.Background(), "s1", calculatorLocator)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded from the load timeout, got %v", err)
	}
}

func TestResolveSessionIDIsCaseInsensitive(t *testing.T) {
	f := newCountingFetcher(t)
	r := New(wsdl.NewLoader(f), WithCache(NewMemoryCache(), time.Minute))
	ctx := context.Background()
	const upper = "6BA7B810-9DAD-11D1-80B4-00C04FD430C8"

	if _, err := r.Operations(ctx, upper, calculatorLocator); err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if _, err := r.Operations(ctx, " 6ba7b810-9dad-11d1-80b4-00c04fd430c8", calculatorLocator); err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Fatalf("expected one fetch for the same session in another case, got %d", n)
	}

	if err := r.Invalidate(ctx, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := r.Operations(ctx, upper, calculatorLocator); err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if n := f.calls.Load(); n != 2 {
		t.Errorf("expected refetch after invalidation, got %d", n)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	cat := &wsdl.Catalog{Locator: calculatorLocator}

	if err := c.Set(ctx, "s1", calculatorLocator, cat, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "s1", calculatorLocator); !ok {
		t.Fatal("expected cache hit")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "s1", calculatorLocator); ok {
		t.Error("expected entry to expire")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheWithClient(RedisCacheConfig{Prefix: "soap:"}, client)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "s1", calculatorLocator); err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	cat := &wsdl.Catalog{
		Locator: calculatorLocator,
		Service: "Calculator",
		Port:    "CalculatorSoap",
		Operations: []*wsdl.Operation{{
			Name:     "Add",
			Endpoint: "http://localhost/calculator.asmx",
			Version:  wsdl.SOAP11,
			Inputs:   []wsdl.Param{{Name: "intA", Required: true}, {Name: "intB", Required: true}},
		}},
	}
	if err := c.Set(ctx, "s1", calculatorLocator, cat, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists("soap:session:s1") {
		t.Fatal("expected session hash under prefix")
	}

	got, ok, err := c.Get(ctx, "s1", calculatorLocator)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, cat) {
		t.Errorf("expected %+v, got %+v", cat, got)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "s1", calculatorLocator); ok {
		t.Error("expected session to expire")
	}

	if err := c.Set(ctx, "s1", calculatorLocator, cat, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Invalidate(ctx, "s1"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "s1", calculatorLocator); ok {
		t.Error("expected miss after invalidation")
	}
}

func TestResolverWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newCountingFetcher(t)
	r := New(wsdl.NewLoader(f), WithCache(NewRedisCacheWithClient(RedisCacheConfig{}, client), time.Minute))
	ctx := context.Background()

	first, err := r.Fields(ctx, "s1", calculatorLocator, "Add")
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	second, err := r.Fields(ctx, "s1", calculatorLocator, "Add")
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical field sets, got %v and %v", first, second)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("expected one fetch, got %d", n)
	}
}
