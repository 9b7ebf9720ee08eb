package battle

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/stat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strike(ctx context.Context, cast *combat.Cast) error {
	for _, t := range cast.Targets {
		amt, err := cast.Amount(ctx, t)
		if err != nil {
			return err
		}
		t.ApplyDamage(amt, cast.Ability.Type, cast.Caster, cast.Options())
	}
	return nil
}

func makeEnv() *combat.Env {
	return combat.NewEnv(combat.Env{RNG: rand.New(rand.NewSource(42)), Pacer: InstantPacer{}})
}

func makeFighter(env *combat.Env, id, team string, hp, power, speed float64) *combat.Character {
	c := combat.NewCharacter(combat.Config{
		ID: id, Name: id, Team: team, Env: env,
		Stats: map[string]float64{stat.MaxHP: hp, stat.MaxMana: 100, stat.Speed: speed},
	})
	c.Abilities().Add(&combat.Ability{
		ID: "strike", Name: "Strike", Type: combat.Pure, Target: combat.TargetEnemy,
		Power: power, Behavior: strike,
	})
	return c
}

func drainEvents(ch <-chan Event) []Event {
	var events []Event
	for evt := range ch {
		events = append(events, evt)
	}
	return events
}

var pass = ControllerFunc(func(context.Context, *combat.Character, []*combat.Character, []*combat.Character) (*combat.CastRequest, error) {
	return nil, nil
})

func TestArena_StrongerTeamWins(t *testing.T) {
	env := makeEnv()
	hero := makeFighter(env, "hero", "red", 500, 100, 20)
	slime := makeFighter(env, "slime", "blue", 150, 10, 5)

	arena := NewArena(Config{Env: env, Controller: Greedy{}})
	require.NoError(t, arena.AddTeam("red", hero))
	require.NoError(t, arena.AddTeam("blue", slime))

	res, err := arena.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "red", res.Winner)
	assert.False(t, res.Draw)
	assert.Equal(t, 2, res.Turns)
	assert.True(t, slime.IsDead())
	assert.Equal(t, 490, hero.HP())

	events := drainEvents(arena.Events())
	require.NotEmpty(t, events)
	assert.Equal(t, "battle_start", events[0].EventType())
	assert.Equal(t, "battle_end", events[len(events)-1].EventType())

	start, ok := events[1].(*EventTurnStart)
	require.True(t, ok)
	assert.Equal(t, []string{"hero", "slime"}, start.Order)
}

func TestArena_DrawAtMaxTurns(t *testing.T) {
	env := makeEnv()
	arena := NewArena(Config{Env: env, Controller: pass, MaxTurns: 5})
	require.NoError(t, arena.AddTeam("red", makeFighter(env, "a", "red", 100, 1, 1)))
	require.NoError(t, arena.AddTeam("blue", makeFighter(env, "b", "blue", 100, 1, 1)))

	res, err := arena.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Draw)
	assert.Empty(t, res.Winner)
	assert.Equal(t, 5, res.Turns)

	turnEnds := 0
	for _, evt := range drainEvents(arena.Events()) {
		if evt.EventType() == "turn_end" {
			turnEnds++
		}
	}
	assert.Equal(t, 5, turnEnds)
}

func TestArena_PerTeamControllers(t *testing.T) {
	env := makeEnv()
	a := makeFighter(env, "a", "red", 100, 60, 10)
	b := makeFighter(env, "b", "blue", 100, 60, 1)

	arena := NewArena(Config{Env: env, Controller: Greedy{}, Controllers: map[string]Controller{"blue": pass}})
	require.NoError(t, arena.AddTeam("red", a))
	require.NoError(t, arena.AddTeam("blue", b))

	res, err := arena.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "red", res.Winner)
	assert.Equal(t, 100, a.HP())
}

func TestArena_ControllerErrorCostsTheAction(t *testing.T) {
	env := makeEnv()
	broken := ControllerFunc(func(context.Context, *combat.Character, []*combat.Character, []*combat.Character) (*combat.CastRequest, error) {
		return nil, errors.New("no idea")
	})
	arena := NewArena(Config{Env: env, Controller: Greedy{}, Controllers: map[string]Controller{"blue": broken}, MaxTurns: 3})
	require.NoError(t, arena.AddTeam("red", makeFighter(env, "a", "red", 100, 1, 1)))
	require.NoError(t, arena.AddTeam("blue", makeFighter(env, "b", "blue", 100, 1, 2)))

	res, err := arena.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Draw)

	var failed []*EventAction
	for _, evt := range drainEvents(arena.Events()) {
		if act, ok := evt.(*EventAction); ok && act.Error != "" {
			failed = append(failed, act)
		}
	}
	require.Len(t, failed, 3)
	assert.Equal(t, "b", failed[0].Actor)
	assert.Equal(t, "no idea", failed[0].Error)
}

func TestArena_AbilityErrorIsReported(t *testing.T) {
	env := makeEnv()
	bad := ControllerFunc(func(_ context.Context, actor *combat.Character, _, enemies []*combat.Character) (*combat.CastRequest, error) {
		return &combat.CastRequest{AbilityID: "missing", Targets: enemies}, nil
	})
	arena := NewArena(Config{Env: env, Controller: bad, MaxTurns: 1})
	require.NoError(t, arena.AddTeam("red", makeFighter(env, "a", "red", 100, 1, 1)))
	require.NoError(t, arena.AddTeam("blue", makeFighter(env, "b", "blue", 100, 1, 2)))

	_, err := arena.Run(context.Background())
	require.NoError(t, err)
	for _, evt := range drainEvents(arena.Events()) {
		if act, ok := evt.(*EventAction); ok {
			assert.Equal(t, "missing", act.Ability)
			assert.Contains(t, act.Error, "unknown ability")
		}
	}
}

func TestArena_EffectsTickOnActorTurnEnd(t *testing.T) {
	env := makeEnv()
	a := makeFighter(env, "a", "red", 100, 1, 1)
	b := makeFighter(env, "b", "blue", 100, 1, 1)
	require.NoError(t, a.AddDebuff(&combat.Effect{ID: "weak", Duration: 2}))

	arena := NewArena(Config{Env: env, Controller: pass, MaxTurns: 2})
	require.NoError(t, arena.AddTeam("red", a))
	require.NoError(t, arena.AddTeam("blue", b))
	_, err := arena.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, a.Effect("weak"))
}

func TestArena_CooldownCountsOwnerTurns(t *testing.T) {
	env := makeEnv()
	a := makeFighter(env, "a", "red", 1000, 10, 10)
	a.Abilities().Get("strike").Cooldown = 2
	b := makeFighter(env, "b", "blue", 1000, 1, 1)

	arena := NewArena(Config{Env: env, Controller: Greedy{}, Controllers: map[string]Controller{"blue": pass}, MaxTurns: 4})
	require.NoError(t, arena.AddTeam("red", a))
	require.NoError(t, arena.AddTeam("blue", b))
	_, err := arena.Run(context.Background())
	require.NoError(t, err)
	// turns 1 and 3
	assert.Equal(t, 980, b.HP())
}

func TestArena_ContextCancelled(t *testing.T) {
	env := makeEnv()
	arena := NewArena(Config{Env: env, Controller: pass})
	require.NoError(t, arena.AddTeam("red", makeFighter(env, "a", "red", 100, 1, 1)))
	require.NoError(t, arena.AddTeam("blue", makeFighter(env, "b", "blue", 100, 1, 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := arena.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type disposeCounter struct{ disposed int }

func (p *disposeCounter) ID() string                         { return "dispose_counter" }
func (p *disposeCounter) Initialize(*combat.Character) error { return nil }
func (p *disposeCounter) Dispose()                           { p.disposed++ }

func TestArena_CancelledBattleDisposesPassives(t *testing.T) {
	env := makeEnv()
	a := makeFighter(env, "a", "red", 100, 1, 1)
	b := makeFighter(env, "b", "blue", 100, 1, 1)
	pa, pb := &disposeCounter{}, &disposeCounter{}
	require.NoError(t, a.AttachPassive(pa))
	require.NoError(t, b.AttachPassive(pb))

	arena := NewArena(Config{Env: env, Controller: pass})
	require.NoError(t, arena.AddTeam("red", a))
	require.NoError(t, arena.AddTeam("blue", b))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := arena.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, pa.disposed)
	assert.Equal(t, 1, pb.disposed)
}

func TestArena_FinishedBattleDisposesOnce(t *testing.T) {
	env := makeEnv()
	a := makeFighter(env, "a", "red", 100, 1, 1)
	pa := &disposeCounter{}
	require.NoError(t, a.AttachPassive(pa))

	arena := NewArena(Config{Env: env, Controller: pass, MaxTurns: 2})
	require.NoError(t, arena.AddTeam("red", a))
	require.NoError(t, arena.AddTeam("blue", makeFighter(env, "b", "blue", 100, 1, 1)))

	res, err := arena.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Draw)
	assert.Equal(t, 1, pa.disposed)
}

func TestArena_SetupErrors(t *testing.T) {
	env := makeEnv()

	arena := NewArena(Config{Env: env, Controller: pass})
	require.NoError(t, arena.AddTeam("red", makeFighter(env, "a", "red", 100, 1, 1)))
	_, err := arena.Run(context.Background())
	assert.ErrorIs(t, err, ErrTeams)

	arena = NewArena(Config{Env: env})
	require.NoError(t, arena.AddTeam("red", makeFighter(env, "a", "red", 100, 1, 1)))
	require.NoError(t, arena.AddTeam("blue", makeFighter(env, "b", "blue", 100, 1, 1)))
	_, err = arena.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoController)
	_, err = arena.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunning)

	err = NewArena(Config{}).AddTeam("red", makeFighter(env, "b", "blue", 100, 1, 1))
	assert.Error(t, err)
}

func TestArena_StartsBattleForEveryone(t *testing.T) {
	env := makeEnv()
	a := makeFighter(env, "a", "red", 100, 1, 1)
	b := makeFighter(env, "b", "blue", 100, 1, 1)
	arena := NewArena(Config{Env: env, Controller: pass, MaxTurns: 1})
	require.NoError(t, arena.AddTeam("red", a))
	require.NoError(t, arena.AddTeam("blue", b))
	_, err := arena.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, a.BattleStarted())
	assert.True(t, b.BattleStarted())
	assert.Equal(t, 1, env.Turn())
}

func TestRealtimePacer(t *testing.T) {
	p := RealtimePacer{Speed: 10}
	start := time.Now()
	require.NoError(t, p.Pause(context.Background(), 200*time.Millisecond))
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RealtimePacer{}.Pause(ctx, time.Hour), context.Canceled)
	assert.NoError(t, InstantPacer{}.Pause(context.Background(), time.Hour))
}
