// Command ambonmud is the server's single entrypoint. Mode (standalone,
// engine, gateway) is selected entirely by config; this file wires every
// package built under internal/ into one Tick Engine run loop, following
// the teacher's single run() function plus fatal-wrapper main() shape.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ambonmud/server/internal/bus"
	busLocal "github.com/ambonmud/server/internal/bus/local"
	"github.com/ambonmud/server/internal/bus/pubsub"
	"github.com/ambonmud/server/internal/bus/rpc"
	"github.com/ambonmud/server/internal/combat"
	"github.com/ambonmud/server/internal/command"
	"github.com/ambonmud/server/internal/config"
	"github.com/ambonmud/server/internal/dirty"
	"github.com/ambonmud/server/internal/group"
	"github.com/ambonmud/server/internal/handoff"
	"github.com/ambonmud/server/internal/hooks"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/mobai"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/persist"
	"github.com/ambonmud/server/internal/ratelimit"
	"github.com/ambonmud/server/internal/registry"
	"github.com/ambonmud/server/internal/scheduler"
	"github.com/ambonmud/server/internal/scripting"
	"github.com/ambonmud/server/internal/tick"
	"github.com/ambonmud/server/internal/transport"
	"github.com/ambonmud/server/internal/vitals"
	"github.com/ambonmud/server/internal/world"
	"github.com/ambonmud/server/internal/zone"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printBanner(name string, mode config.Mode, engineId string) {
	fmt.Println()
	fmt.Println("  +-----------------------------------------+")
	fmt.Println("  |              AmbonMUD  v0.1.0            |")
	fmt.Println("  +-----------------------------------------+")
	fmt.Println()
	fmt.Printf("  server: %s  mode: %s  engine: %s\n\n", name, mode, engineId)
}

func printSection(title string) {
	fmt.Printf("  -- %s %s\n", title, strings.Repeat("-", 40-len(title)))
}

func printOK(msg string) { fmt.Printf("  [ok] %s\n", msg) }

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("AMBONMUD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := loadConfigOrDefault(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.Mode, cfg.Server.EngineId)

	// Persistence (in-memory reference repository; a production deployment
	// swaps this for the pgx/v5 + goose chain behind the same interface).
	repo := persist.NewMemoryRepository()
	players := registry.NewPlayerRegistry(repo)
	mobs := registry.NewMobRegistry()
	items := registry.NewItemRegistry()

	world := seedWorld()
	seedMobs(mobs)

	rules, err := scripting.NewEngine("scripts", log)
	if err != nil {
		return fmt.Errorf("scripting engine: %w", err)
	}
	defer rules.Close()
	printOK("scripting engine loaded")

	dirtySets := dirty.NewSets()
	roomOf := dirty.NewRegistryRoomOf(players, mobs)

	status := vitals.NewStatusEffects()
	shuffleSessions := func(s []ids.SessionId) { rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] }) }
	shuffleMobs := func(s []model.MobId) { rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] }) }

	regenCfg := vitals.RegenConfig{
		HPBaseIntervalMs:    cfg.Vitals.HPBaseIntervalMs,
		HPMsPerConstitution: cfg.Vitals.HPMsPerConstitution,
		HPMinIntervalMs:     cfg.Vitals.HPMinIntervalMs,
		HPAmount:            cfg.Vitals.HPAmount,
		ManaBaseIntervalMs:  cfg.Vitals.ManaBaseIntervalMs,
		ManaMsPerWisdom:     cfg.Vitals.ManaMsPerWisdom,
		ManaMinIntervalMs:   cfg.Vitals.ManaMinIntervalMs,
		ManaAmount:          cfg.Vitals.ManaAmount,
		MaxPlayersPerTick:   cfg.Vitals.MaxPlayersPerTick,
	}
	regen := vitals.NewRegen(regenCfg, shuffleSessions)
	_ = vitals.NewAbilities(rules)

	alloc := ids.NewAllocator(0, cfg.Network.MaxClockDriftMs)

	inBus, outBus, _, closeBus := buildBuses(cfg, log)
	defer closeBus()

	broadcaster := tick.NewBusBroadcaster(outBus, players)

	groups := group.New(cfg.Group.MaxGroupSize, cfg.Group.InviteExpiry, players)

	hookSet := hooks.New(players, broadcaster, []hooks.QuestObjective{
		{QuestId: "sewer-cull", MobZone: "sewer"},
	}, []hooks.AchievementRule{
		{AchievementId: "novice-slayer", CounterKey: "kills", Threshold: 10},
	}, []hooks.AchievementRule{
		{AchievementId: "field-medic", CounterKey: "heal-count", Threshold: 10},
	})

	combatCfg := combat.Config{
		TickPeriod:              cfg.Network.TickRate,
		MaxCombatsPerTick:       cfg.Combat.MaxCombatsPerTick,
		StrDivisor:              cfg.Combat.StrDivisor,
		DexDodgePerPoint:        cfg.Combat.DexDodgePerPoint,
		MaxDodgePct:             cfg.Combat.MaxDodgePct,
		HealingThreatMultiplier: cfg.Combat.HealingThreatMultiplier,
		BonusPerExtraMember:     cfg.Combat.BonusPerExtraMember,
		BaseStrength:            cfg.Combat.BaseStrength,
		BaseDexterity:           cfg.Combat.BaseDexterity,
	}
	core := combat.New(combatCfg, status, rules, players, mobs, items, hookSet)
	core.SetGroups(groups)

	ai := mobai.New(mobai.Config{MaxMobsPerTick: 64}, rules, mobs, players, core, world, rand.Intn, shuffleMobs)

	sched := scheduler.New()

	handoffMgr := handoff.NewManager(cfg.Handoff.AckTimeout)

	coordinator := zoneCoordinator(cfg, log)
	router := zone.NewRouter(coordinator, cfg.Zone.HighWater, cfg.Zone.LowWater, cfg.Zone.SustainWindow, cfg.Zone.CooldownWindow)

	dispatcher := command.New(command.Deps{
		Players: players,
		Mobs:    mobs,
		Combat:  core,
		Groups:  groups,
		Rooms:   world,
		B:       broadcaster,
		OnDisconnect: func(sid ids.SessionId) {
			if p, ok := players.Get(sid); ok {
				_ = players.Disconnect(sid, time.Now().UnixMilli())
				_ = repo.Save(persist.PlayerSnapshot{PlayerId: p.PlayerId, Name: p.Name, RoomId: p.RoomId, LastSeenUnixMs: time.Now().UnixMilli()})
			}
		},
	})

	var gatedDispatcher tick.InboundDispatcher = dispatcher
	if cfg.RateLimit.Enabled {
		gatedDispatcher = ratelimit.New(dispatcher, cfg.RateLimit.PacketsPerSecond, cfg.RateLimit.BurstSize, func(sid ids.SessionId) {
			broadcaster.ToSession(sid, "You're sending commands too fast.")
		})
	}

	budgets := tick.Budgets{
		InboundDrain:  cfg.Network.InboundBudget,
		Simulation:    cfg.Network.TickRate,
		DirtyFlush:    cfg.Network.TickRate,
		OutboundFlush: cfg.Network.TickRate,
		TickPeriod:    cfg.Network.TickRate,
	}
	engine := tick.NewEngine(budgets, tick.WithDegradation(20, func(s tick.Stats) {
		log.Warn("tick engine degraded", zap.Uint64("tick", s.TickCount), zap.Int("consecutive_overruns", s.ConsecutiveOverrunTicks))
	}))

	tick.RegisterInboundDrain(engine, tick.InboundDrainDeps{
		Bus:        inBus,
		MaxPerTick: cfg.Network.MaxInboundPerTick,
		Budget:     cfg.Network.InboundBudget,
		Dispatcher: gatedDispatcher,
	})

	tick.RegisterSimulation(engine, tick.SimulationDeps{
		Scheduler:           sched,
		MaxScheduledPerTick: 128,
		ActionHandlers:      map[model.ScheduledActionKind]tick.ScheduledActionHandler{},
		Regen:               regen,
		Status:              status,
		Players:             players,
		Mobs:                mobs,
		StatusTickInterval:  time.Second,
		OnDOT: func(sid ids.SessionId, amount int32) {
			if p, ok := players.Get(sid); ok {
				p.HP -= amount
				broadcaster.ToSession(sid, fmt.Sprintf("You take %d damage.", amount))
			}
		},
		OnHOT: func(sid ids.SessionId, amount int32) {
			if p, ok := players.Get(sid); ok {
				p.HP += amount
				broadcaster.ToSession(sid, fmt.Sprintf("You heal %d.", amount))
			}
		},
		OnMobDOT: func(mobId model.MobId, amount int32) {
			if m, ok := mobs.Get(mobId); ok {
				m.HP -= amount
			}
		},
		MobAI:       ai,
		Combat:      core,
		Broadcaster: broadcaster,
		Dirty:       dirtySets,
		Shuffle:     shuffleSessions,
	})

	tick.RegisterDirtyFlush(engine, tick.DirtyFlushDeps{
		Dirty: dirtySets,
		Rooms: roomOf,
		Out:   outBus,
		PlayerVitals: func(sid ids.SessionId) (string, []byte) {
			p, _ := players.Get(sid)
			return "char.vitals", []byte(fmt.Sprintf(`{"hp":%d,"maxHp":%d,"mana":%d,"maxMana":%d}`, p.HP, p.MaxHP, p.Mana, p.MaxMana))
		},
	})

	lineServer, err := transport.NewLineServer(cfg.Network.LineBindAddress, inBus, alloc, transport.LineLimits{}, cfg.Network.OutQueueSizePerSession, cfg.Network.WriteTimeout, cfg.Network.ReadTimeout, log)
	if err != nil {
		return fmt.Errorf("line server: %w", err)
	}
	wsServer := transport.NewWSServer(inBus, alloc, transport.LineLimits{}, cfg.Network.OutQueueSizePerSession, cfg.Network.WriteTimeout, cfg.Network.ReadTimeout, log)

	tick.RegisterOutboundFlush(engine, tick.OutboundFlushDeps{
		Bus:         outBus,
		MaxPerTick:  4096,
		Transmitter: multiTransmitter{lineServer, wsServer},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go lineServer.AcceptLoop(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer.Handler())
	httpServer := &http.Server{Addr: cfg.Network.WSBindAddress, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("websocket listener failed", zap.Error(err))
		}
	}()

	printSection("network")
	printOK(fmt.Sprintf("line protocol listening on %s", lineServer.Addr()))
	printOK(fmt.Sprintf("websocket listening on %s", cfg.Network.WSBindAddress))
	fmt.Println()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go engine.Run(ctx, time.Now)
	go runMaintenanceLoop(ctx, router, handoffMgr, []string{"hub", "sewer"}, log)

	sig := <-shutdownCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))
	cancel()
	_ = lineServer.Close()
	_ = wsServer.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	log.Info("server stopped")
	return nil
}

// multiTransmitter fans one session's outbound batch out to whichever
// transport adapter currently owns that session; each adapter's Transmit
// is a no-op for a session id it doesn't recognize, so trying both is
// cheaper than tracking a session->adapter map a third time.
type multiTransmitter struct {
	line *transport.LineServer
	ws   *transport.WSServer
}

func (m multiTransmitter) Transmit(sid ids.SessionId, events []bus.OutboundEvent) {
	m.line.Transmit(sid, events)
	m.ws.Transmit(sid, events)
}

func loadConfigOrDefault(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		cfg, err := config.Load(os.DevNull)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// zoneCoordinator wires the Redis-backed zone coordinator in any
// multi-process mode, falling back to an in-memory single-instance
// coordinator in STANDALONE where there is only ever one engine.
func zoneCoordinator(cfg *config.Config, log *zap.Logger) zone.Coordinator {
	if cfg.Server.Mode == config.ModeStandalone {
		return zone.NewInMemoryCoordinator(cfg.Server.EngineId)
	}
	client := redisClientFromEnv(log)
	if client == nil {
		return zone.NewInMemoryCoordinator(cfg.Server.EngineId)
	}
	return zone.NewRedisCoordinator(client)
}

// buildBuses selects the EventBus implementation per cfg.Bus.Kind: local
// (the default, and the fallback when a pub/sub setup step fails), pub/sub
// over NATS, or streaming RPC over gRPC,
// mirroring the three BusConfig.Kind values the composition root is the
// only place that needs to branch on.
func buildBuses(cfg *config.Config, log *zap.Logger) (bus.InboundBus, bus.OutboundBus, bus.InterEngineBus, func()) {
	switch cfg.Bus.Kind {
	case "pubsub":
		conn, err := pubsub.Connect(pubsub.Config{
			URL:           cfg.Bus.NatsURL,
			NodeId:        cfg.Server.EngineId,
			SharedSecret:  []byte(cfg.Bus.SharedSecret),
			MaxSkew:       cfg.Bus.EnvelopeMaxSkew,
			QueueCapacity: cfg.Network.InQueueSize,
		}, log)
		if err != nil {
			log.Warn("pubsub bus unavailable, falling back to local", zap.Error(err))
			break
		}
		inB, errIn := pubsub.NewInboundBus(conn, "ambonmud.inbound", cfg.Network.InQueueSize)
		outB, errOut := pubsub.NewOutboundBus(conn, "ambonmud.outbound", cfg.Network.OutQueueSizePerSession)
		ieB, errIE := pubsub.NewInterEngineBus(conn, "ambonmud.interengine", cfg.Network.InQueueSize)
		if errIn == nil && errOut == nil && errIE == nil {
			return inB, outB, ieB, func() {}
		}
		log.Warn("pubsub bus setup failed, falling back to local", zap.Error(errIn))
	case "rpc":
		if cfg.Server.Mode == config.ModeEngine {
			srv := rpc.NewServer(cfg.Network.InQueueSize, cfg.Network.OutQueueSizePerSession, cfg.Network.InQueueSize, log)
			return srv.Inbound, srv.Outbound, srv.InterEngine, func() {}
		}
		client := rpc.NewClient(cfg.Bus.RPCDialTarget, cfg.Server.EngineId, cfg.Network.InQueueSize, cfg.Network.OutQueueSizePerSession, cfg.Network.InQueueSize, log)
		go client.Run(context.Background())
		return client.Inbound, client.Outbound, client.InterEngine, func() {}
	}

	in := busLocal.NewInboundBus(cfg.Network.InQueueSize)
	out := busLocal.NewOutboundBus(cfg.Network.OutQueueSizePerSession)
	ie := busLocal.NewInterEngineBus(cfg.Network.InQueueSize)
	return in, out, ie, func() { in.Close(); out.Close(); ie.Close() }
}

// seedWorld builds the minimal room table every STANDALONE boot needs to
// be interactively playable; real content loading is an external concern
// the Tick Engine never performs itself.
func seedWorld() *world.World {
	plaza := model.NewRoomId("hub", "plaza")
	sewerEntrance := model.NewRoomId("sewer", "entrance")

	return world.NewFromRooms([]*model.Room{
		{
			Id:          plaza,
			Name:        "The Plaza",
			Description: "A wide cobblestone plaza at the heart of town.",
			Exits:       []model.Exit{{Direction: model.North, ToRoomId: sewerEntrance}},
		},
		{
			Id:          sewerEntrance,
			Name:        "Sewer Entrance",
			Description: "A dripping stone stairway descends into darkness.",
			Exits:       []model.Exit{{Direction: model.South, ToRoomId: plaza}},
		},
	})
}

// runMaintenanceLoop drives the two periodic, between-tick concerns that
// don't belong on the hot tick path: handoff ticket expiry (§4.12) and
// zone instance scale evaluation (§4.11). Neither needs tick-accurate
// timing, so both run on their own slow ticker rather than stealing a
// Simulation-phase budget for work with no per-player latency target.
func runMaintenanceLoop(ctx context.Context, router *zone.Router, handoffMgr *handoff.Manager, zones []string, log *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rolledBack, discarded := handoffMgr.SweepExpired(now)
			for _, t := range rolledBack {
				log.Warn("handoff ticket rolled back on ack timeout", zap.String("ticket", t.Id))
			}
			if len(discarded) > 0 {
				log.Warn("discarded stale inbound handoff tickets", zap.Strings("tickets", discarded))
			}

			for _, z := range zones {
				instances, err := router.Instances(ctx, z)
				if err != nil {
					continue
				}
				if decision := router.Evaluate(now, z, instances); decision != nil {
					log.Info("zone scale decision", zap.String("zone", decision.Zone), zap.Bool("scale_up", decision.ScaleUp))
				}
			}
		}
	}
}

func redisClientFromEnv(log *zap.Logger) *redis.Client {
	addr := os.Getenv("AMBONMUD_REDIS_ADDR")
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis unreachable, falling back to in-memory zone coordinator", zap.Error(err))
		return nil
	}
	return client
}

func seedMobs(mobs *registry.MobRegistry) {
	mobs.Spawn(&model.MobState{
		Id:          model.MobId("sewer:rat-1"),
		Name:        "a sewer rat",
		RoomId:      model.NewRoomId("sewer", "entrance"),
		HP:          20,
		MaxHP:       20,
		MinDamage:   1,
		MaxDamage:   4,
		Armor:       0,
		XPReward:    10,
		TemplateKey: "sewer-rat",
	})
}
