package calculator

import (
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"

	"justapengu.in/pedal/internal/config"
	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

var (
	ErrDuplicateCalculator = errors.New("calculator: duplicate calculator name")
	ErrUnknownCalculator   = errors.New("calculator: unknown calculator")
)

type entry struct {
	calculator Calculator
	divisor    uint64
}

// Registry is the static table of calculators the scheduler runs. Register is
// not safe to call once Run has started; Result and Results may be called
// from any goroutine at any time.
type Registry struct {
	entries []entry
	index   map[string]int

	wasAvailable bool
	results      atomic.Pointer[map[string]Result]
}

func NewRegistry() *Registry {
	r := &Registry{index: make(map[string]int)}

	results := make(map[string]Result)
	r.results.Store(&results)

	return r
}

// Default builds the registry with every calculator, applying the configured
// refresh divisors. Divisors naming an unknown calculator are an error.
func Default(conf *config.Config) (*Registry, error) {
	calculators := []Calculator{
		fuelRate{},
		newFuelPerLap(),
		newFuelLastLap(),
		newFuelLapsRemaining(),
		&lapsCompleted{},
		lastLapTime{},
		newDeltaBest(),
		newSectorDelta(),
	}

	for _, corner := range telemetry.Corners {
		calculators = append(calculators,
			newTyreWear(corner, false),
			newTyreWear(corner, true),
			tyreTemp{corner: corner},
			newBrakeWear(corner, brakeRemaining),
			newBrakeWear(corner, brakeLapWear),
			newBrakeWear(corner, brakeLastLapWear),
		)
	}

	calculators = append(calculators,
		newBatteryUsage(false, false),
		newBatteryUsage(true, false),
		newBatteryUsage(false, true),
		newBatteryUsage(true, true),
		newMotorActiveTime(),
		paceNote{lookahead: conf.PaceNoteLookahead()},
		sessionPhase{},
	)

	r := NewRegistry()

	for _, calculator := range calculators {
		if err := r.Register(calculator, conf.Divisor(calculator.Name())); err != nil {
			return nil, err
		}
	}

	for name := range conf.CalculatorRefreshDivisors {
		if _, ok := r.index[name]; !ok {
			return nil, errors.Wrapf(ErrUnknownCalculator, "refresh divisor set for %q", name)
		}
	}

	return r, nil
}

// Register adds a calculator evaluated every divisor ticks. Its result starts
// out invalid until the first Run.
func (r *Registry) Register(calculator Calculator, divisor int) error {
	name := calculator.Name()

	if _, ok := r.index[name]; ok {
		return errors.Wrap(ErrDuplicateCalculator, name)
	}

	if divisor < 1 {
		divisor = 1
	}

	r.index[name] = len(r.entries)
	r.entries = append(r.entries, entry{calculator: calculator, divisor: uint64(divisor)})

	prev := r.results.Load()
	next := make(map[string]Result, len(*prev)+1)

	for k, v := range *prev {
		next[k] = v
	}

	next[name] = Result{Name: name, Reason: ReasonSourceUnavailable}
	r.results.Store(&next)

	return nil
}

// Run evaluates the calculators due on this tick and publishes their results
// in one step. While the snapshot is unavailable, and on the tick it becomes
// available again, every calculator runs so that no result lags behind the
// source state. Run returns the number of calculators evaluated.
func (r *Registry) Run(tick uint64, snap *snapshot.Snapshot) int {
	available := snap != nil && snap.Available()
	all := !available || !r.wasAvailable
	r.wasAvailable = available

	prev := r.results.Load()
	next := make(map[string]Result, len(*prev))

	for k, v := range *prev {
		next[k] = v
	}

	var ran int

	for _, e := range r.entries {
		if !all && tick%e.divisor != 0 {
			continue
		}

		result := e.calculator.Update(snap)
		result.Name = e.calculator.Name()

		next[result.Name] = result
		ran++
	}

	r.results.Store(&next)

	return ran
}

func (r *Registry) Result(name string) (Result, bool) {
	result, ok := (*r.results.Load())[name]

	return result, ok
}

// Results returns every published result ordered by name.
func (r *Registry) Results() []Result {
	results := *r.results.Load()
	out := make([]Result, 0, len(results))

	for _, result := range results {
		out = append(out, result)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}

// Names lists the registered calculators in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))

	for _, e := range r.entries {
		names = append(names, e.calculator.Name())
	}

	return names
}
