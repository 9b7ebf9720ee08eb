package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kasuganosora/arena/battlelog"
	"github.com/kasuganosora/arena/config"
	dbadapter "github.com/kasuganosora/arena/db"
	"github.com/kasuganosora/arena/game/battle"
	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/content"
	"github.com/kasuganosora/arena/game/formula"
	"github.com/kasuganosora/arena/game/registry"
	"github.com/kasuganosora/arena/game/script"
	"github.com/kasuganosora/arena/game/talent"
	"github.com/kasuganosora/arena/model"
	"github.com/kasuganosora/arena/resource"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Demo line-up.
var teams = map[string][]string{
	"red":  {"duelist", "knight", "cleric"},
	"blue": {"vampire", "assassin", "brute"},
}

func main() {
	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("battle failed", zap.Error(err))
		os.Exit(1)
	}
}

// run wires every subsystem from cfg, fights one battle between the demo
// teams and prints its progress to out.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) (battle.Result, error) {
	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return battle.Result{}, fmt.Errorf("db: %w", err)
	}
	if db != nil {
		if err := model.AutoMigrate(db); err != nil {
			return battle.Result{}, fmt.Errorf("db migrate: %w", err)
		}
		logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))
	}

	// ---- Resources ----
	res := resource.NewLoader(cfg.Data.Characters, cfg.Data.Abilities, cfg.Data.Talents)
	if err := res.Load(); err != nil {
		return battle.Result{}, err
	}
	logger.Info("resources loaded",
		zap.Int("characters", len(res.Characters)), zap.Int("abilities", len(res.Abilities)), zap.Int("talents", len(res.Talents)))

	// ---- Registries ----
	reg := registry.New(logger)
	app := talent.NewApplicator(logger)
	content.Register(reg, app)
	reg.Abilities.Define(res.Abilities...)

	// ---- Journal ----
	journal := battlelog.Tee{battlelog.Logger{L: logger}}
	var store *battlelog.Service
	if db != nil {
		store = battlelog.New(db, battlelog.Options{Buffer: cfg.Journal.Buffer, FlushInterval: cfg.Journal.FlushInterval}, logger)
		journal = append(journal, store)
	}

	var pacer combat.Pacer = battle.InstantPacer{}
	if cfg.Battle.PaceSpeed > 0 {
		pacer = battle.RealtimePacer{Speed: cfg.Battle.PaceSpeed}
	}
	sandbox := script.NewSandbox(cfg.Script.VMPoolSize, cfg.Script.Timeout, logger)
	env := combat.NewEnv(combat.Env{
		Logger:  logger,
		Journal: journal,
		RNG:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Formula: formula.NewEvaluator(sandbox, logger),
		Pacer:   pacer,
		Rules:   cfg.Combat.Rules(),
	})

	arena := battle.NewArena(battle.Config{Env: env, Controller: battle.Greedy{}, MaxTurns: cfg.Battle.MaxTurns})
	for _, team := range []string{"red", "blue"} {
		for _, id := range teams[team] {
			c, err := spawn(reg, app, res, id, team, env, logger)
			if err != nil {
				return battle.Result{}, err
			}
			if err := arena.AddTeam(team, c); err != nil {
				return battle.Result{}, err
			}
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range arena.Events() {
			printEvent(out, evt)
		}
	}()
	result, runErr := arena.Run(ctx)
	<-done

	if store != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Stop(stopCtx); err != nil {
			logger.Warn("battle log not drained", zap.Error(err))
		}
		if runErr == nil {
			if err := summarize(store, db, result, out); err != nil {
				logger.Warn("battle summary not stored", zap.Error(err))
			}
		}
	}
	return result, runErr
}

// spawn creates a character from data and applies its default talents.
func spawn(reg *registry.Registry, app *talent.Applicator, res *resource.ResourceLoader, id, team string, env *combat.Env, logger *zap.Logger) (*combat.Character, error) {
	data := res.CharacterByID(id)
	if data == nil {
		return nil, fmt.Errorf("unknown character %q", id)
	}
	c, err := reg.Characters.Create(data, team, env)
	if err != nil {
		return nil, err
	}
	if len(data.Talents) > 0 {
		rep, err := app.Apply(c, data.Talents, res.Talents)
		if err != nil {
			return nil, fmt.Errorf("talents for %s: %w", id, err)
		}
		for _, w := range rep.Warnings {
			logger.Warn("talent skipped", zap.String("character", id), zap.String("reason", w))
		}
	}
	return c, nil
}

func summarize(store *battlelog.Service, db *gorm.DB, result battle.Result, out io.Writer) error {
	if err := store.Summarize(result.Winner, result.Draw, result.Turns); err != nil {
		return err
	}
	entries, err := battlelog.Entries(db, store.BattleID())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "battle %s: %d journal entries stored\n", store.BattleID(), len(entries))
	return nil
}

func printEvent(out io.Writer, evt battle.Event) {
	switch e := evt.(type) {
	case *battle.EventTurnStart:
		fmt.Fprintf(out, "-- turn %d: %v\n", e.Turn, e.Order)
	case *battle.EventAction:
		switch {
		case e.Error != "":
			fmt.Fprintf(out, "   %s: %s failed (%s)\n", e.Actor, e.Ability, e.Error)
		case e.Ability == "":
			fmt.Fprintf(out, "   %s waits\n", e.Actor)
		default:
			fmt.Fprintf(out, "   %s uses %s on %v\n", e.Actor, e.Ability, e.Targets)
		}
	case *battle.EventTurnEnd:
		for _, s := range e.Characters {
			if !s.Dead {
				fmt.Fprintf(out, "   %-8s %5d/%-5d hp  shield %d  %v\n", s.ID, s.HP, s.MaxHP, s.Shield, s.Effects)
			}
		}
	case *battle.EventBattleEnd:
		if e.Result.Draw {
			fmt.Fprintf(out, "== draw after %d turns\n", e.Result.Turns)
		} else {
			fmt.Fprintf(out, "== %s wins after %d turns\n", e.Result.Winner, e.Result.Turns)
		}
	}
}
