// Command ecsprofile profiles entity creation, component churn, and
// EntitySet query-set maintenance under pkg/profile, replacing the
// archetype-era profile/entities and profile/query mains (incompatible
// with the dense-pool architecture; see DESIGN.md).
package main

import (
	"flag"
	"fmt"

	"github.com/pkg/profile"

	"github.com/vectorstate/ecs"
)

type Position struct{ X, Y float64 }
type Velocity struct{ DX, DY float64 }

func main() {
	mode := flag.String("mode", "cpu", "cpu | mem | trace")
	entityCount := flag.Int("entities", 100_000, "number of entities to create")
	iterations := flag.Int("iterations", 60, "number of simulated ticks")
	flag.Parse()

	var stopper interface{ Stop() }
	switch *mode {
	case "mem":
		stopper = profile.Start(profile.MemProfile)
	case "trace":
		stopper = profile.Start(profile.TraceProfile)
	default:
		stopper = profile.Start(profile.CPUProfile)
	}
	defer stopper.Stop()

	runEntityChurn(*entityCount)
	runQuerySetChurn(*entityCount, *iterations)
}

func runEntityChurn(n int) {
	w := ecs.NewWorld(ecs.Options{MaxEntities: n + 1})
	defer w.Close()
	pool := ecs.EnsurePool[Position](w)

	entities := make([]ecs.Entity, 0, n)
	for i := 0; i < n; i++ {
		e, err := w.CreateEntity()
		if err != nil {
			panic(err)
		}
		_ = pool.SetAny(e, Position{X: float64(i), Y: float64(i)})
		entities = append(entities, e)
	}
	for _, e := range entities {
		w.DisposeEntity(e)
	}
	fmt.Printf("entity churn: created and disposed %d entities\n", n)
}

func runQuerySetChurn(n, ticks int) {
	w := ecs.NewWorld(ecs.Options{MaxEntities: n + 1})
	defer w.Close()
	posPool := ecs.EnsurePool[Position](w)
	velPool := ecs.EnsurePool[Velocity](w)

	fb := ecs.NewFilterBuilder(w)
	filter := ecs.With[Velocity](ecs.With[Position](fb)).Build()
	set := ecs.NewEntitySet(w, filter, false)
	defer set.Unsubscribe()

	for i := 0; i < n; i++ {
		e, err := w.CreateEntity()
		if err != nil {
			panic(err)
		}
		_ = posPool.SetAny(e, Position{X: float64(i)})
		if i%2 == 0 {
			_ = velPool.SetAny(e, Velocity{DX: 1})
		}
	}

	for t := 0; t < ticks; t++ {
		for _, e := range set.Entities() {
			p := posPool.GetAny(e).(Position)
			v := velPool.GetAny(e).(Velocity)
			_ = posPool.SetAny(e, Position{X: p.X + v.DX, Y: p.Y + v.DY})
		}
	}
	fmt.Printf("query-set churn: %d members, %d ticks\n", set.Count(), ticks)
}
