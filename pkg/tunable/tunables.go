package tunable

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Tunable is a float that can be nudged from the joystick while the bot is
// running.
type Tunable struct {
	Name string
	Step float64

	bits atomic.Uint64
}

func (t *Tunable) Add(steps int) float64 {
	for {
		old := t.bits.Load()
		newV := math.Float64frombits(old) + float64(steps)*t.Step
		if t.bits.CompareAndSwap(old, math.Float64bits(newV)) {
			fmt.Printf("Tunable %s = %.3f\n", t.Name, newV)
			return newV
		}
	}
}

func (t *Tunable) Get() float64 {
	return math.Float64frombits(t.bits.Load())
}

func (t *Tunable) Set(v float64) {
	t.bits.Store(math.Float64bits(v))
}

type Tunables struct {
	All      []*Tunable
	selected int
}

func (t *Tunables) Create(name string, value, step float64) *Tunable {
	newTunable := &Tunable{
		Name: name,
		Step: step,
	}
	newTunable.Set(value)
	t.All = append(t.All, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	if len(t.All) == 0 {
		return
	}
	t.selected++
	if t.selected >= len(t.All) {
		t.selected = 0
	}
	fmt.Println("Tunable", t.Current().Name, "selected, value:", t.Current().Get())
}

func (t *Tunables) SelectPrev() {
	if len(t.All) == 0 {
		return
	}
	t.selected--
	if t.selected < 0 {
		t.selected = len(t.All) - 1
	}
	fmt.Println("Tunable", t.Current().Name, "selected, value:", t.Current().Get())
}

// Current returns nil if there are no tunables.
func (t *Tunables) Current() *Tunable {
	if len(t.All) == 0 {
		return nil
	}
	return t.All[t.selected]
}
