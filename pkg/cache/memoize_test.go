package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoized_CallsOncePerKey(t *testing.T) {
	engine := newTestEngine(t, 1<<20, 1<<20)

	calls := 0
	double := Memoized(engine, CategorySearchResult, func(n int) (int, error) {
		calls++
		return n * 2, nil
	})

	for i := 0; i < 2; i++ {
		got, err := double(21)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != 42 {
			t.Fatalf("call %d: got %d, want 42", i, got)
		}
	}
	if calls != 1 {
		t.Errorf("function ran %d times for one key, want 1", calls)
	}

	if _, err := double(7); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("function ran %d times for two keys, want 2", calls)
	}
}

func TestMemoized_StructResults(t *testing.T) {
	engine := newTestEngine(t, 1<<20, 1<<20)

	type result struct {
		Query string   `json:"query"`
		IDs   []string `json:"ids"`
	}

	calls := 0
	search := Memoized(engine, CategorySearchResult, func(q string) (result, error) {
		calls++
		return result{Query: q, IDs: []string{"colosseo", "pantheon"}}, nil
	})

	first, err := search("roma")
	if err != nil {
		t.Fatal(err)
	}
	second, err := search("roma")
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("function ran %d times, want 1", calls)
	}
	if second.Query != first.Query || len(second.IDs) != 2 {
		t.Errorf("cached result mismatch: %+v vs %+v", second, first)
	}
}

func TestMemoized_CustomKeyAndTTL(t *testing.T) {
	engine := newTestEngine(t, 1<<20, 1<<20)

	calls := 0
	fetch := MemoizedWith(engine, CategoryAPIResponse, func(url string) (string, error) {
		calls++
		return "body:" + url, nil
	}, MemoOptions[string]{
		TTL: 50 * time.Millisecond,
		Key: func(url string) string { return "fetch:" + url },
	})

	if _, err := fetch("https://example.test"); err != nil {
		t.Fatal(err)
	}
	if _, err := fetch("https://example.test"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("function ran %d times within the TTL window, want 1", calls)
	}

	time.Sleep(70 * time.Millisecond)

	if _, err := fetch("https://example.test"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("function ran %d times after TTL expiry, want 2", calls)
	}
}

func TestMemoized_ErrorsAreNotCached(t *testing.T) {
	engine := newTestEngine(t, 1<<20, 1<<20)

	boom := errors.New("backend down")
	calls := 0
	flaky := Memoized(engine, CategoryAPIResponse, func(k string) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	})

	if _, err := flaky("x"); !errors.Is(err, boom) {
		t.Fatalf("first call error = %v, want %v", err, boom)
	}
	got, err := flaky("x")
	if err != nil || got != "ok" {
		t.Fatalf("second call = (%q, %v), want recovery", got, err)
	}
	if calls != 2 {
		t.Errorf("function ran %d times, want 2 (errors must not be cached)", calls)
	}
}

func TestMemoized_ConcurrentFirstCallsCollapse(t *testing.T) {
	engine := newTestEngine(t, 1<<20, 1<<20)

	var calls int64
	slow := Memoized(engine, CategorySearchResult, func(q string) (string, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return "answer:" + q, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := slow("roma")
			if err != nil || got != "answer:roma" {
				t.Errorf("got (%q, %v)", got, err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("function ran %d times under concurrency, want 1", n)
	}
}
