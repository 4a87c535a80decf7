// Package smelting runs furnace stations. Each station converts one input unit
// per recipe interval while it holds both an input with a recipe and a fuel that
// recipe accepts.
package smelting

import (
	"errors"
	"sort"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

var (
	ErrNoStation     = errors.New("no station at cell")
	ErrStackMismatch = errors.New("slot holds a different item")
	ErrEmpty         = errors.New("nothing to take")
)

const epsilon = 1e-9

type Stack struct {
	Item  catalogs.ItemKind
	Count int
}

func (s *Stack) empty() bool { return s == nil || s.Count <= 0 }

type Station struct {
	Cell    store.Cell
	Input   *Stack
	Fuel    *Stack
	Output  *Stack
	Elapsed float64
}

// Completion reports one finished smelt.
type Completion struct {
	Cell   store.Cell
	Output catalogs.ItemCount
}

type Stations struct {
	recipes map[catalogs.ItemKind]catalogs.SmeltRecipe
	byCell  map[store.Cell]*Station
}

func New(recipes map[catalogs.ItemKind]catalogs.SmeltRecipe) *Stations {
	return &Stations{
		recipes: recipes,
		byCell:  map[store.Cell]*Station{},
	}
}

// Open returns the station at cell, creating an empty one if needed.
func (s *Stations) Open(cell store.Cell) *Station {
	if st, ok := s.byCell[cell]; ok {
		return st
	}
	st := &Station{Cell: cell}
	s.byCell[cell] = st
	return st
}

func (s *Stations) Get(cell store.Cell) (*Station, bool) {
	st, ok := s.byCell[cell]
	return st, ok
}

// Remove deletes the station and returns whatever it still held.
func (s *Stations) Remove(cell store.Cell) []catalogs.ItemCount {
	st, ok := s.byCell[cell]
	if !ok {
		return nil
	}
	delete(s.byCell, cell)
	var out []catalogs.ItemCount
	for _, stack := range []*Stack{st.Input, st.Fuel, st.Output} {
		if !stack.empty() {
			out = append(out, catalogs.ItemCount{Item: stack.Item, Count: stack.Count})
		}
	}
	return out
}

func (s *Stations) Len() int { return len(s.byCell) }

// Cells returns station cells sorted row-major.
func (s *Stations) Cells() []store.Cell {
	out := make([]store.Cell, 0, len(s.byCell))
	for c := range s.byCell {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Put installs a fully formed station, replacing any at the same cell.
func (s *Stations) Put(st Station) {
	cp := st
	s.byCell[st.Cell] = &cp
}

func merge(slot **Stack, item catalogs.ItemKind, count int) error {
	if count <= 0 || item == catalogs.NoItem {
		return nil
	}
	if (*slot).empty() {
		*slot = &Stack{Item: item, Count: count}
		return nil
	}
	if (*slot).Item != item {
		return ErrStackMismatch
	}
	(*slot).Count += count
	return nil
}

func (s *Stations) InsertInput(cell store.Cell, item catalogs.ItemKind, count int) error {
	st, ok := s.byCell[cell]
	if !ok {
		return ErrNoStation
	}
	return merge(&st.Input, item, count)
}

func (s *Stations) InsertFuel(cell store.Cell, item catalogs.ItemKind, count int) error {
	st, ok := s.byCell[cell]
	if !ok {
		return ErrNoStation
	}
	return merge(&st.Fuel, item, count)
}

// TakeOutput empties the output slot.
func (s *Stations) TakeOutput(cell store.Cell) (catalogs.ItemCount, error) {
	st, ok := s.byCell[cell]
	if !ok {
		return catalogs.ItemCount{}, ErrNoStation
	}
	if st.Output.empty() {
		return catalogs.ItemCount{}, ErrEmpty
	}
	out := catalogs.ItemCount{Item: st.Output.Item, Count: st.Output.Count}
	st.Output = nil
	return out, nil
}

// Recipe returns the recipe a station would run right now.
func (s *Stations) Recipe(st *Station) (catalogs.SmeltRecipe, bool) {
	if st.Input.empty() || st.Fuel.empty() {
		return catalogs.SmeltRecipe{}, false
	}
	r, ok := s.recipes[st.Input.Item]
	if !ok || !r.AcceptsFuel(st.Fuel.Item) {
		return catalogs.SmeltRecipe{}, false
	}
	if !st.Output.empty() && st.Output.Item != r.Output.Item {
		return catalogs.SmeltRecipe{}, false
	}
	return r, true
}

// Tick advances every station, in row-major order, by dt seconds.
func (s *Stations) Tick(dt float64) []Completion {
	var done []Completion
	for _, cell := range s.Cells() {
		st := s.byCell[cell]
		r, ok := s.Recipe(st)
		if !ok {
			continue
		}
		st.Elapsed += dt
		if st.Elapsed+epsilon < r.TimeSeconds {
			continue
		}
		if st.Output.empty() {
			st.Output = &Stack{Item: r.Output.Item}
		}
		st.Output.Count += r.Output.Count
		st.Input.Count--
		st.Fuel.Count--
		st.Elapsed = 0
		if st.Input.Count <= 0 {
			st.Input = nil
		}
		if st.Fuel.Count <= 0 {
			st.Fuel = nil
		}
		done = append(done, Completion{Cell: cell, Output: r.Output})
	}
	return done
}
