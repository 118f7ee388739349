// Package zone implements the Zone Registry & Router: zone ownership
// lookup, instance selection policies, and threshold-hysteresis instance
// scaling, per §4.11. The coordinator-store shape (a thin Redis client
// wrapper behind a narrow interface) is grounded in the teacher pack's
// gateway manager, which keeps a single *redis.Client for cross-process
// shared state rather than hand-rolling a coordination protocol.
package zone

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Instance is one running copy of a dynamic zone.
type Instance struct {
	Id       string
	Count    int
	Capacity int
}

// Policy selects one instance out of the candidates known for a zone.
type Policy func(candidates []Instance, priorInstanceId string, partyLeaderInstanceId string) string

// LeastLoaded picks the instance with the lowest Count/Capacity ratio.
func LeastLoaded(candidates []Instance, _ string, _ string) string {
	if len(candidates) == 0 {
		return ""
	}
	best := candidates[0]
	bestLoad := float64(best.Count) / float64(maxInt(best.Capacity, 1))
	for _, c := range candidates[1:] {
		load := float64(c.Count) / float64(maxInt(c.Capacity, 1))
		if load < bestLoad {
			best, bestLoad = c, load
		}
	}
	return best.Id
}

// Sticky prefers the caller's prior instance if it still exists and has
// capacity, falling back to LeastLoaded otherwise.
func Sticky(candidates []Instance, priorInstanceId string, partyLeaderInstanceId string) string {
	for _, c := range candidates {
		if c.Id == priorInstanceId && c.Count < c.Capacity {
			return c.Id
		}
	}
	return LeastLoaded(candidates, priorInstanceId, partyLeaderInstanceId)
}

// AntiAffinityWithLeader steers a joining party member away from their
// leader's instance when an alternative with spare capacity exists, so a
// whole party isn't forced onto one crowded instance by chance.
func AntiAffinityWithLeader(candidates []Instance, priorInstanceId string, partyLeaderInstanceId string) string {
	var others []Instance
	for _, c := range candidates {
		if c.Id != partyLeaderInstanceId {
			others = append(others, c)
		}
	}
	if len(others) == 0 {
		return LeastLoaded(candidates, priorInstanceId, partyLeaderInstanceId)
	}
	return LeastLoaded(others, priorInstanceId, partyLeaderInstanceId)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Coordinator is the narrow store the Registry needs: zone ownership and
// per-instance load counters, backed by Redis in multi-process
// deployments or an in-memory stub in STANDALONE mode.
type Coordinator interface {
	Owner(ctx context.Context, zone string) (engineId string, ok bool, err error)
	Instances(ctx context.Context, zone string) ([]Instance, error)
	IncrInstanceCount(ctx context.Context, zone, instanceId string, delta int) error
}

// RedisCoordinator backs the Zone Registry with Redis, namespacing keys
// under zone/<zone>/... per §6's Persisted State section.
type RedisCoordinator struct {
	client *redis.Client
}

func NewRedisCoordinator(client *redis.Client) *RedisCoordinator {
	return &RedisCoordinator{client: client}
}

func (r *RedisCoordinator) Owner(ctx context.Context, zone string) (string, bool, error) {
	v, err := r.client.Get(ctx, fmt.Sprintf("zone/%s/owner", zone)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisCoordinator) Instances(ctx context.Context, zone string) ([]Instance, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf("zone/%s/instances", zone)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Instance, 0, len(ids))
	for _, id := range ids {
		count, _ := r.client.Get(ctx, fmt.Sprintf("zone/%s/instance/%s/count", zone, id)).Int()
		capacity, _ := r.client.Get(ctx, fmt.Sprintf("zone/%s/instance/%s/capacity", zone, id)).Int()
		out = append(out, Instance{Id: id, Count: count, Capacity: capacity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (r *RedisCoordinator) IncrInstanceCount(ctx context.Context, zone, instanceId string, delta int) error {
	return r.client.IncrBy(ctx, fmt.Sprintf("zone/%s/instance/%s/count", zone, instanceId), int64(delta)).Err()
}

// InMemoryCoordinator is the STANDALONE-mode Coordinator: a single engine
// owns every zone in one unscaled instance.
type InMemoryCoordinator struct {
	selfEngineId string
	instances    map[string][]Instance
}

func NewInMemoryCoordinator(selfEngineId string) *InMemoryCoordinator {
	return &InMemoryCoordinator{selfEngineId: selfEngineId, instances: make(map[string][]Instance)}
}

func (c *InMemoryCoordinator) Owner(_ context.Context, _ string) (string, bool, error) {
	return c.selfEngineId, true, nil
}

func (c *InMemoryCoordinator) Instances(_ context.Context, zone string) ([]Instance, error) {
	if insts, ok := c.instances[zone]; ok {
		return insts, nil
	}
	return []Instance{{Id: zone + "-0", Count: 0, Capacity: 1 << 30}}, nil
}

func (c *InMemoryCoordinator) IncrInstanceCount(_ context.Context, zone, instanceId string, delta int) error {
	insts := c.instances[zone]
	for i, inst := range insts {
		if inst.Id == instanceId {
			insts[i].Count += delta
			c.instances[zone] = insts
			return nil
		}
	}
	return nil
}

// scalingWindow tracks how long a zone's instance count has continuously
// sat above/below the hysteresis watermarks, implementing the
// sustainWindow/cooldownWindow thresholds of §4.11 without scaling on
// every momentary spike.
type scalingWindow struct {
	aboveHighSince time.Time
	belowLowSince  time.Time
	lastScaledAt   time.Time
}

// Router selects instances and decides when a dynamic zone's instance
// count should scale.
type Router struct {
	coordinator Coordinator
	highWater   int
	lowWater    int
	sustain     time.Duration
	cooldown    time.Duration

	windows map[string]*scalingWindow
	rng     *rand.Rand
}

func NewRouter(coordinator Coordinator, highWater, lowWater int, sustain, cooldown time.Duration) *Router {
	return &Router{
		coordinator: coordinator,
		highWater:   highWater,
		lowWater:    lowWater,
		sustain:     sustain,
		cooldown:    cooldown,
		windows:     make(map[string]*scalingWindow),
		rng:         rand.New(rand.NewSource(1)),
	}
}

// Owner implements owner(zone) -> engineId?
func (r *Router) Owner(ctx context.Context, zone string) (string, bool, error) {
	return r.coordinator.Owner(ctx, zone)
}

// Instances implements instances(zone) -> [{id, count, capacity}].
func (r *Router) Instances(ctx context.Context, zone string) ([]Instance, error) {
	return r.coordinator.Instances(ctx, zone)
}

// SelectInstance implements selectInstance(zone, policy) -> instanceId.
func (r *Router) SelectInstance(ctx context.Context, zone string, policy Policy, priorInstanceId, partyLeaderInstanceId string) (string, error) {
	candidates, err := r.coordinator.Instances(ctx, zone)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("zone %s has no live instances", zone)
	}
	return policy(candidates, priorInstanceId, partyLeaderInstanceId), nil
}

// ScaleDecision reports whether Evaluate decided to scale, and which way.
type ScaleDecision struct {
	Zone    string
	ScaleUp bool
}

// Evaluate applies the scale-up/scale-down hysteresis rule to one zone's
// current total count, to be called once per tick (or on a slower
// cadence) per dynamic zone. It never recommends scaling a zone below
// one instance.
func (r *Router) Evaluate(now time.Time, zone string, instances []Instance) *ScaleDecision {
	w, ok := r.windows[zone]
	if !ok {
		w = &scalingWindow{}
		r.windows[zone] = w
	}

	total := 0
	for _, inst := range instances {
		total += inst.Count
	}

	if total > r.highWater {
		if w.aboveHighSince.IsZero() {
			w.aboveHighSince = now
		}
	} else {
		w.aboveHighSince = time.Time{}
	}

	if total < r.lowWater && len(instances) > 1 {
		if w.belowLowSince.IsZero() {
			w.belowLowSince = now
		}
	} else {
		w.belowLowSince = time.Time{}
	}

	if !w.aboveHighSince.IsZero() && now.Sub(w.aboveHighSince) >= r.sustain && now.Sub(w.lastScaledAt) >= r.cooldown {
		w.lastScaledAt = now
		w.aboveHighSince = time.Time{}
		return &ScaleDecision{Zone: zone, ScaleUp: true}
	}
	if !w.belowLowSince.IsZero() && now.Sub(w.belowLowSince) >= r.cooldown && now.Sub(w.lastScaledAt) >= r.cooldown {
		w.lastScaledAt = now
		w.belowLowSince = time.Time{}
		return &ScaleDecision{Zone: zone, ScaleUp: false}
	}
	return nil
}
