package scheduler

import (
	"math/rand"
	"sync"
)

// Frontier stores links discovered by the barber until the producer offers
// them as new customers. When full, the oldest link is dropped.
type Frontier struct {
	mutex sync.Mutex
	links []string
	index map[string]struct{}
	max   int
}

func NewFrontier(max int) *Frontier {
	if max < 1 {
		max = 1
	}
	return &Frontier{index: make(map[string]struct{}), max: max}
}

// Offer stores the links not already stored and returns how many were added.
func (f *Frontier) Offer(links []string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	added := 0
	for _, link := range links {
		if _, ok := f.index[link]; ok {
			continue
		}
		f.links = append(f.links, link)
		f.index[link] = struct{}{}
		added++
		if len(f.links) > f.max {
			delete(f.index, f.links[0])
			f.links = f.links[1:]
		}
	}
	return added
}

// Pick removes and returns a random stored link.
func (f *Frontier) Pick(rng *rand.Rand) (string, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if len(f.links) == 0 {
		return "", false
	}
	i := rng.Intn(len(f.links))
	link := f.links[i]
	f.links = append(f.links[:i], f.links[i+1:]...)
	delete(f.index, link)
	return link, true
}

func (f *Frontier) Len() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.links)
}
