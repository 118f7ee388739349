// Package scripting hosts the external ability/status-effect rules
// tables and the XP progression curve behind a single gopher-lua VM.
// The spec treats these rules tables as an external collaborator
// specified only by the interface the core calls through; this package
// is that interface, adapted from the teacher's single-VM, load-once
// engine.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only (the
// tick thread); there is no hot-reload because the tick thread can never
// block on file I/O mid-tick, so reload happens only between ticks via
// Reload.
type Engine struct {
	vm         *lua.LState
	scriptsDir string
	log        *zap.Logger
}

// NewEngine creates a Lua engine and loads all rules scripts from the
// given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := &Engine{scriptsDir: scriptsDir, log: log}
	vm, err := e.load()
	if err != nil {
		return nil, err
	}
	e.vm = vm
	return e, nil
}

// Reload swaps in a freshly loaded VM, atomically from the caller's
// point of view: on error the previous VM keeps serving.
func (e *Engine) Reload() error {
	vm, err := e.load()
	if err != nil {
		return err
	}
	old := e.vm
	e.vm = vm
	old.Close()
	return nil
}

func (e *Engine) load() (*lua.LState, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	for _, sub := range []string{"ability", "status", "progression", "ai", "dialogue"} {
		path := filepath.Join(e.scriptsDir, sub)
		if err := loadDir(vm, path, e.log); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return vm, nil
}

func loadDir(vm *lua.LState, dir string, log *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() { e.vm.Close() }

// TargetKind is who an ability resolves against.
type TargetKind uint8

const (
	TargetSelf TargetKind = iota
	TargetEnemy
	TargetAlly
)

// AbilityEffectKind is what the ability does once targeting resolves;
// Combat Core performs the actual damage/heal/status application so that
// threat and death handling stay uniform, this only supplies the rule
// data driving that application.
type AbilityEffectKind uint8

const (
	EffectDamage AbilityEffectKind = iota
	EffectHeal
	EffectApplyStatus
	EffectAreaDamage
)

// AbilityDef is the external rules-table entry for one ability,
// resolved by key through the Lua `get_ability` function.
type AbilityDef struct {
	Key          string
	ClassMask    uint8 // bit per model.Class
	MinLevel     int32
	ManaCost     int32
	CooldownMs   int64
	Target       TargetKind
	Effect       AbilityEffectKind
	MinMagnitude int32
	MaxMagnitude int32
	StatusKind   int32 // maps to model.EffectKind when Effect == EffectApplyStatus
	DurationMs   int64
}

// GetAbility calls the Lua get_ability(key) function and decodes its
// returned table. Missing abilities or Lua errors return (nil, err) so
// the Ability System can gate the cast with a normal user-facing
// failure instead of a panic.
func (e *Engine) GetAbility(key string) (*AbilityDef, error) {
	fn := e.vm.GetGlobal("get_ability")
	if fn == lua.LNil {
		return nil, fmt.Errorf("scripting: get_ability not defined")
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(key)); err != nil {
		return nil, fmt.Errorf("scripting: get_ability(%s): %w", key, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)

	t, ok := result.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("scripting: unknown ability %q", key)
	}

	return &AbilityDef{
		Key:          key,
		ClassMask:    uint8(lInt(t, "class_mask")),
		MinLevel:     int32(lInt(t, "min_level")),
		ManaCost:     int32(lInt(t, "mana_cost")),
		CooldownMs:   int64(lInt(t, "cooldown_ms")),
		Target:       TargetKind(lInt(t, "target")),
		Effect:       AbilityEffectKind(lInt(t, "effect")),
		MinMagnitude: int32(lInt(t, "min_magnitude")),
		MaxMagnitude: int32(lInt(t, "max_magnitude")),
		StatusKind:   int32(lInt(t, "status_kind")),
		DurationMs:   int64(lInt(t, "duration_ms")),
	}, nil
}

// ExpForLevel calls the Lua progression curve for the total XP required
// to reach level.
func (e *Engine) ExpForLevel(level int32) int64 {
	return int64(e.callIntFunc("exp_for_level", int(level)))
}

// LevelFromExp is the inverse of ExpForLevel, used after an XP grant to
// detect a level-up.
func (e *Engine) LevelFromExp(exp int64) int32 {
	return int32(e.callIntFunc("level_from_exp", int(exp)))
}

// MobActionKind is what a mob decided to do this tick; Combat Core and
// the Mob Registry carry out whichever action the rules table picked.
type MobActionKind uint8

const (
	MobActionIdle MobActionKind = iota
	MobActionEngageNearest
	MobActionWander
)

// MobDecision is the external Behavior Tree's per-tick verdict for one
// mob: Go detects candidate targets and room geometry, Lua decides what
// to do with them, mirroring the teacher's split between Go-driven
// target detection and Lua-driven decision logic.
type MobDecision struct {
	Action MobActionKind
}

// DecideMobAction calls the Lua decide_mob_action(templateKey, hasTarget)
// function. A missing function or Lua error yields MobActionIdle rather
// than failing the tick.
func (e *Engine) DecideMobAction(templateKey string, hasTarget bool) MobDecision {
	fn := e.vm.GetGlobal("decide_mob_action")
	if fn == lua.LNil {
		return MobDecision{Action: MobActionIdle}
	}
	hasTargetLua := lua.LFalse
	if hasTarget {
		hasTargetLua = lua.LTrue
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(templateKey), hasTargetLua); err != nil {
		e.log.Error("lua call error", zap.String("name", "decide_mob_action"), zap.Error(err))
		return MobDecision{Action: MobActionIdle}
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	t, ok := result.(*lua.LTable)
	if !ok {
		return MobDecision{Action: MobActionIdle}
	}
	return MobDecision{Action: MobActionKind(lInt(t, "action"))}
}

func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

func (e *Engine) callIntFunc(name string, args ...int) int {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return 0
	}
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = lua.LNumber(a)
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); err != nil {
		e.log.Error("lua call error", zap.String("name", name), zap.Error(err))
		return 0
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result))
}
