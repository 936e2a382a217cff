package decode

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// predictionCache remembers the parity of already decoded filtered
// syndromes. Decoding is deterministic per syndrome, so a hit never
// changes a result.
type predictionCache struct {
	c *lru.Cache[string, bool]
}

func newPredictionCache(size int) (*predictionCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, bool](size)
	if err != nil {
		return nil, err
	}
	return &predictionCache{c: c}, nil
}

func cacheKey(filtered []int) string {
	var b strings.Builder
	for i, idx := range filtered {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

func (p *predictionCache) get(key string) (bool, bool) {
	if p == nil {
		return false, false
	}
	v, ok := p.c.Get(key)
	if ok {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}
	return v, ok
}

func (p *predictionCache) add(key string, parity bool) {
	if p == nil {
		return
	}
	p.c.Add(key, parity)
}
