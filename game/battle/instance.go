// Package battle runs turn-based battles between teams of combat
// characters.
package battle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/arena/game/combat"
	"go.uber.org/zap"
)

var (
	ErrNoController = errors.New("battle: no controller")
	ErrTeams        = errors.New("battle: at least two teams are required")
	ErrRunning      = errors.New("battle: already run")
)

// Controller chooses an action for each actor on its turn. A nil request
// passes the turn.
type Controller interface {
	Decide(ctx context.Context, actor *combat.Character, allies, enemies []*combat.Character) (*combat.CastRequest, error)
}

// ControllerFunc adapts a function to Controller.
type ControllerFunc func(ctx context.Context, actor *combat.Character, allies, enemies []*combat.Character) (*combat.CastRequest, error)

func (f ControllerFunc) Decide(ctx context.Context, actor *combat.Character, allies, enemies []*combat.Character) (*combat.CastRequest, error) {
	return f(ctx, actor, allies, enemies)
}

// Result describes how a battle ended. Winner is empty on a draw.
type Result struct {
	Winner string `json:"winner,omitempty"`
	Draw   bool   `json:"draw"`
	Turns  int    `json:"turns"`
}

// Config configures an Arena.
type Config struct {
	Env *combat.Env
	// Controller decides for every team without an entry in Controllers.
	Controller  Controller
	Controllers map[string]Controller
	TurnMgr     TurnManager // nil = SpeedOrder
	// MaxTurns ends the battle in a draw; 0 = 100.
	MaxTurns int
	// DecisionTimeout bounds each Decide call; 0 = 30 seconds.
	DecisionTimeout time.Duration
}

// Arena manages one battle. Teams must be added before calling Run.
type Arena struct {
	env         *combat.Env
	logger      *zap.Logger
	controller  Controller
	controllers map[string]Controller
	turnMgr     TurnManager
	maxTurns    int
	timeout     time.Duration

	teams  []string
	roster map[string][]*combat.Character
	turn   int
	ran    bool

	events chan Event
}

// NewArena creates an arena.
func NewArena(cfg Config) *Arena {
	if cfg.Env == nil {
		cfg.Env = combat.NewEnv(combat.Env{})
	}
	if cfg.TurnMgr == nil {
		cfg.TurnMgr = SpeedOrder{}
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 100
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = 30 * time.Second
	}
	return &Arena{
		env:         cfg.Env,
		logger:      cfg.Env.Logger,
		controller:  cfg.Controller,
		controllers: cfg.Controllers,
		turnMgr:     cfg.TurnMgr,
		maxTurns:    cfg.MaxTurns,
		timeout:     cfg.DecisionTimeout,
		roster:      make(map[string][]*combat.Character),
		events:      make(chan Event, 64),
	}
}

// Events returns the event channel. It is closed when the first Run
// returns.
// Events are dropped (and logged) when the channel is full.
func (a *Arena) Events() <-chan Event {
	return a.events
}

// AddTeam adds characters to team. Each character's Team must match.
func (a *Arena) AddTeam(team string, members ...*combat.Character) error {
	for _, c := range members {
		if c.Team() != team {
			return fmt.Errorf("battle: %s belongs to team %q, not %q", c.ID(), c.Team(), team)
		}
	}
	if _, ok := a.roster[team]; !ok {
		a.teams = append(a.teams, team)
	}
	a.roster[team] = append(a.roster[team], members...)
	return nil
}

// Team returns the members of team.
func (a *Arena) Team(team string) []*combat.Character {
	return a.roster[team]
}

// Turn returns the current turn number.
func (a *Arena) Turn() int { return a.turn }

func (a *Arena) all() []*combat.Character {
	var out []*combat.Character
	for _, t := range a.teams {
		out = append(out, a.roster[t]...)
	}
	return out
}

func (a *Arena) controllerFor(team string) Controller {
	if c, ok := a.controllers[team]; ok && c != nil {
		return c
	}
	return a.controller
}

// Run executes the battle main loop and blocks until one team is left
// standing, MaxTurns is reached or ctx is cancelled.
func (a *Arena) Run(ctx context.Context) (Result, error) {
	if a.ran {
		return Result{}, ErrRunning
	}
	a.ran = true
	defer close(a.events)
	if len(a.teams) < 2 {
		return Result{}, ErrTeams
	}
	for _, t := range a.teams {
		if a.controllerFor(t) == nil {
			return Result{}, fmt.Errorf("%w for team %q", ErrNoController, t)
		}
	}

	// Passives are torn down however the battle ends.
	defer func() {
		for _, c := range a.all() {
			c.Dispose()
		}
	}()

	for _, c := range a.all() {
		if err := c.StartBattle(); err != nil {
			return Result{}, fmt.Errorf("battle: start %s: %w", c.ID(), err)
		}
	}
	a.emit(&EventBattleStart{Characters: snapshotAll(a.all())})

	for a.turn < a.maxTurns {
		if err := ctx.Err(); err != nil {
			return Result{Turns: a.turn}, err
		}
		a.turn++
		a.env.SetTurn(a.turn)
		a.logger.Debug("battle turn start", zap.Int("turn", a.turn))

		order := a.turnMgr.MakeActionOrder(a.all(), a.env.RNG)
		a.emit(&EventTurnStart{Turn: a.turn, Order: ids(order)})

		for _, actor := range order {
			if actor.IsDead() {
				continue
			}
			if err := a.act(ctx, actor); err != nil {
				return Result{Turns: a.turn}, err
			}
			if res, done := a.checkEnd(); done {
				a.finish(res)
				return res, nil
			}
		}

		a.emit(&EventTurnEnd{Turn: a.turn, Characters: snapshotAll(a.all())})
	}

	res := Result{Draw: true, Turns: a.turn}
	a.finish(res)
	return res, nil
}

// act runs one actor's turn: turn-start hooks, the controller's decision,
// the cast and the turn-end boundary. Only context cancellation aborts
// the battle; every other failure costs the actor its action.
func (a *Arena) act(ctx context.Context, actor *combat.Character) error {
	actor.BeginTurn(a.turn)
	if actor.IsDead() {
		return nil
	}

	allies, enemies := a.sides(actor)
	ev := &EventAction{Turn: a.turn, Actor: actor.ID()}

	dctx, cancel := context.WithTimeout(ctx, a.timeout)
	req, err := a.controllerFor(actor.Team()).Decide(dctx, actor, allies, enemies)
	cancel()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case err != nil:
		a.logger.Warn("controller failed", zap.String("actor", actor.ID()), zap.Error(err))
		ev.Error = err.Error()
	case req != nil:
		req.Allies, req.Enemies = allies, enemies
		ev.Ability = req.AbilityID
		ev.Targets = ids(req.Targets)
		if err := actor.UseAbility(ctx, *req); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			a.logger.Warn("ability failed",
				zap.String("actor", actor.ID()), zap.String("ability", req.AbilityID), zap.Error(err))
			ev.Error = err.Error()
		}
	}

	actor.EndTurn(a.turn)
	ev.After = snapshotAll(a.all())
	a.emit(ev)
	return nil
}

// sides returns actor's living allies (actor included) and living enemies.
func (a *Arena) sides(actor *combat.Character) (allies, enemies []*combat.Character) {
	for _, t := range a.teams {
		for _, c := range a.roster[t] {
			if c.IsDead() {
				continue
			}
			if t == actor.Team() {
				allies = append(allies, c)
			} else {
				enemies = append(enemies, c)
			}
		}
	}
	return allies, enemies
}

// checkEnd reports the result once at most one team has living members.
func (a *Arena) checkEnd() (Result, bool) {
	var standing []string
	for _, t := range a.teams {
		for _, c := range a.roster[t] {
			if c.IsAlive() {
				standing = append(standing, t)
				break
			}
		}
	}
	switch len(standing) {
	case 0:
		return Result{Draw: true, Turns: a.turn}, true
	case 1:
		return Result{Winner: standing[0], Turns: a.turn}, true
	}
	return Result{}, false
}

func (a *Arena) finish(res Result) {
	a.logger.Info("battle finished",
		zap.String("winner", res.Winner), zap.Bool("draw", res.Draw), zap.Int("turns", res.Turns))
	a.emit(&EventBattleEnd{Result: res})
}

func (a *Arena) emit(evt Event) {
	select {
	case a.events <- evt:
	default:
		a.logger.Warn("battle event dropped (channel full)", zap.String("type", evt.EventType()))
	}
}
