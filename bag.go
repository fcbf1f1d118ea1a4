package maplejuice

import (
	orderedmap "github.com/wk8/go-ordered-map"
)

// keyedBag groups values by key. Keys iterate in the order they were first
// added; values keep their insertion order and duplicates.
// A keyedBag lives for a single juice pass.
type keyedBag struct {
	groups *orderedmap.OrderedMap
	total  int
}

func newKeyedBag() *keyedBag {
	return &keyedBag{
		groups: orderedmap.New(),
	}
}

func (b *keyedBag) add(key, value string) {
	b.total++
	if existing, ok := b.groups.Get(key); ok {
		b.groups.Set(key, append(existing.([]string), value))
		return
	}
	b.groups.Set(key, []string{value})
}

// len returns the number of distinct keys.
func (b *keyedBag) len() int {
	return b.groups.Len()
}

// each calls fn for every key in first-seen order, stopping at the first error.
func (b *keyedBag) each(fn func(key string, values []string) error) error {
	for pair := b.groups.Oldest(); pair != nil; pair = pair.Next() {
		if err := fn(pair.Key.(string), pair.Value.([]string)); err != nil {
			return err
		}
	}
	return nil
}
