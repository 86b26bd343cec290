package evaluator

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/ure/pkg/ure/atom"
)

// Memoize wraps fn with an LRU cache of the given size keyed by the
// argument atoms. Errors are not cached. The wrapper is safe for
// concurrent use if fn is.
func Memoize(fn Func, size int) (Func, error) {
	cache, err := lru.New[string, atom.TruthValue](size)
	if err != nil {
		return nil, err
	}
	return func(args []*atom.Atom) (atom.TruthValue, error) {
		key := argsKey(args)
		if tv, ok := cache.Get(key); ok {
			return tv, nil
		}
		tv, err := fn(args)
		if err != nil {
			return tv, err
		}
		cache.Add(key, tv)
		return tv, nil
	}, nil
}

func argsKey(args []*atom.Atom) string {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = a.Key()
	}
	return strings.Join(keys, " ")
}
