package cache

import (
	"fmt"
	"reflect"
	"runtime"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

// MemoOptions tunes a memoized function.
type MemoOptions[A any] struct {
	// TTL overrides the category default for stored results.
	TTL time.Duration

	// Key derives the cache key from the argument. When nil, the key is the
	// function's identity plus the JSON form of the argument.
	Key func(A) string
}

// Memoized wraps fn so its results are cached through the engine. On a hit
// the cached result is returned without invoking fn; on a miss fn runs, its
// result is stored, and concurrent first calls for the same key are
// collapsed so fn executes at most once per distinct key per TTL window.
//
// Results must round-trip through JSON. Errors from fn are returned to the
// caller and never cached.
func Memoized[A, R any](e *Engine, cat Category, fn func(A) (R, error)) func(A) (R, error) {
	return MemoizedWith(e, cat, fn, MemoOptions[A]{})
}

// MemoizedWith is Memoized with explicit options.
func MemoizedWith[A, R any](e *Engine, cat Category, fn func(A) (R, error), opts MemoOptions[A]) func(A) (R, error) {
	var group singleflight.Group

	keyFor := opts.Key
	if keyFor == nil {
		name := functionName(fn)
		keyFor = func(arg A) string {
			data, err := json.Marshal(arg)
			if err != nil {
				return fmt.Sprintf("%s:%+v", name, arg)
			}
			return name + ":" + string(data)
		}
	}

	return func(arg A) (R, error) {
		key := keyFor(arg)

		if data, ok := e.Get(key, cat); ok {
			var result R
			if err := json.Unmarshal(data, &result); err == nil {
				return result, nil
			}
			// The cached bytes no longer decode into R; drop and recompute.
			e.Invalidate(key, cat)
		}

		v, err, _ := group.Do(key, func() (any, error) {
			result, err := fn(arg)
			if err != nil {
				return result, err
			}
			if data, err := json.Marshal(result); err == nil {
				e.Set(key, cat, data, WithTTL(opts.TTL))
			}
			return result, nil
		})
		if err != nil {
			var zero R
			return zero, err
		}
		return v.(R), nil
	}
}

// functionName resolves the fully qualified name of fn for default keys.
func functionName(fn any) string {
	if pc := reflect.ValueOf(fn).Pointer(); pc != 0 {
		if f := runtime.FuncForPC(pc); f != nil {
			return f.Name()
		}
	}
	return "func"
}
