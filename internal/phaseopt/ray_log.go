package phaseopt

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

type Category uint8

const (
	Transmitted Category = iota // ray crossed a surface
	Missed                      // ray did not meet the next surface
	Evanescent                  // surface had no real outgoing direction
)

type RayLog struct {
	Name      string
	Category  Category
	Surface   int // index in the transmission sequence
	Origin    r3.Vec
	Direction r3.Vec
	Point     r3.Vec // hit point, if any
	Time      Real
}

type RayLogCache struct {
	mu   sync.Mutex
	rays map[string][]RayLog // map of ray name to logs
}

var cache = &RayLogCache{
	rays: make(map[string][]RayLog),
}

func logRay(name string, category Category, surface int, origin, direction, point r3.Vec, time Real) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.rays[name] = append(cache.rays[name], RayLog{
		Name:      name,
		Category:  category,
		Surface:   surface,
		Origin:    origin,
		Direction: direction,
		Point:     point,
		Time:      time,
	})
}

// resetRayLogs drops everything collected so far.
func resetRayLogs() {
	cache.mu.Lock()
	cache.rays = make(map[string][]RayLog)
	cache.mu.Unlock()
}

func raysStats() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	names := make([]string, 0, len(cache.rays))
	for k := range cache.rays {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Printf("Ray type %s: %d logs\n", k, len(cache.rays[k]))
	}
}
