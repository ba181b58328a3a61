package snake

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/hoshinonyaruko/snake-frame/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(x, y int) structs.Position {
	return structs.Position{X: x, Y: y}
}

func TestNewGame(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		state := NewGame(rng)
		assert.Equal(t, []structs.Position{pos(7, 7)}, state.Snake)
		assert.Equal(t, structs.Right, state.Direction)
		assert.Zero(t, state.Score)
		assert.False(t, state.GameOver)
		assert.True(t, state.Food.InBounds())
		assert.False(t, state.Occupies(state.Food), "food spawned on snake")
	}
}

func TestDirectionForButton(t *testing.T) {
	tests := []struct {
		index int
		want  structs.Direction
		ok    bool
	}{
		{1, structs.Up, true},
		{2, structs.Down, true},
		{3, structs.Left, true},
		{4, structs.Right, true},
		{0, "", false},
		{5, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		got, ok := DirectionForButton(tt.index)
		assert.Equal(t, tt.ok, ok, "button %d", tt.index)
		assert.Equal(t, tt.want, got, "button %d", tt.index)
	}
}

func TestAdvanceIgnoresReversalOnFirstMove(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	state := &structs.GameState{
		Snake:     []structs.Position{pos(7, 7)},
		Food:      pos(0, 0),
		Direction: structs.Right,
	}

	Advance(rng, state, structs.Left)

	assert.False(t, state.GameOver)
	assert.Equal(t, structs.Right, state.Direction)
	assert.Equal(t, []structs.Position{pos(8, 7)}, state.Snake)
}

func TestAdvanceReversalMatchesNoTurn(t *testing.T) {
	for _, d := range []structs.Direction{structs.Up, structs.Down, structs.Left, structs.Right} {
		a := &structs.GameState{
			Snake:     []structs.Position{pos(7, 7), pos(7, 8)},
			Food:      pos(0, 0),
			Direction: d,
		}
		// 第二节在蛇头后方
		bx, by := d.Opposite().Offset()
		a.Snake[1] = structs.Position{X: 7 + bx, Y: 7 + by}
		b := a.Clone()

		Advance(rand.New(rand.NewSource(3)), a, d.Opposite())
		Advance(rand.New(rand.NewSource(3)), b, d)

		assert.Equal(t, b, a, "reversal from %s", d)
		assert.Equal(t, d, a.Direction)
	}
}

func TestAdvanceOutOfBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	last := structs.GridSize - 1

	type edge struct {
		dir   structs.Direction
		cells func(i int) structs.Position
	}
	edges := []edge{
		{structs.Left, func(i int) structs.Position { return pos(0, i) }},
		{structs.Right, func(i int) structs.Position { return pos(last, i) }},
		{structs.Up, func(i int) structs.Position { return pos(i, 0) }},
		{structs.Down, func(i int) structs.Position { return pos(i, last) }},
	}

	for _, e := range edges {
		for i := 0; i < structs.GridSize; i++ {
			cell := e.cells(i)
			state := &structs.GameState{
				Snake:     []structs.Position{cell},
				Food:      pos(7, 7),
				Direction: e.dir,
				Score:     3,
			}
			if cell == state.Food {
				state.Food = pos(6, 6)
			}

			Advance(rng, state, e.dir)

			assert.True(t, state.GameOver, "%v moving %s", cell, e.dir)
			assert.Equal(t, []structs.Position{cell}, state.Snake)
			assert.Equal(t, 3, state.Score)
		}
	}
}

func TestAdvanceLeftWallScenario(t *testing.T) {
	state := &structs.GameState{
		Snake:     []structs.Position{pos(0, 7)},
		Food:      pos(3, 3),
		Direction: structs.Left,
	}

	Advance(rand.New(rand.NewSource(5)), state, structs.Left)

	assert.True(t, state.GameOver)
	assert.Equal(t, []structs.Position{pos(0, 7)}, state.Snake)
}

func TestAdvanceEatsFood(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	state := &structs.GameState{
		Snake:     []structs.Position{pos(5, 5), pos(5, 6)},
		Food:      pos(5, 4),
		Direction: structs.Up,
	}

	Advance(rng, state, structs.Up)

	require.False(t, state.GameOver)
	assert.Equal(t, 1, state.Score)
	assert.Equal(t, []structs.Position{pos(5, 4), pos(5, 5), pos(5, 6)}, state.Snake)
	assert.True(t, state.Food.InBounds())
	assert.False(t, state.Occupies(state.Food))
}

func TestAdvanceIntoTailIsFatal(t *testing.T) {
	state := &structs.GameState{
		Snake:     []structs.Position{pos(5, 5), pos(6, 5), pos(6, 6), pos(5, 6)},
		Food:      pos(0, 0),
		Direction: structs.Left,
	}
	before := state.Clone()

	Advance(rand.New(rand.NewSource(7)), state, structs.Down)

	assert.True(t, state.GameOver)
	assert.Equal(t, before.Snake, state.Snake)
	assert.Equal(t, before.Score, state.Score)
}

func TestAdvanceRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	dirs := []structs.Direction{structs.Up, structs.Down, structs.Left, structs.Right}

	for game := 0; game < 200; game++ {
		state := NewGame(rng)
		for step := 0; step < 500 && !state.GameOver; step++ {
			before := state.Clone()

			Advance(rng, state, dirs[rng.Intn(len(dirs))])

			if state.GameOver {
				assert.Equal(t, before.Snake, state.Snake)
				assert.Equal(t, before.Score, state.Score)
				break
			}
			grew := len(state.Snake) - len(before.Snake)
			require.Contains(t, []int{0, 1}, grew)
			assert.Equal(t, before.Score+grew, state.Score)
			assert.False(t, state.Occupies(state.Food), "food on snake at step %d", step)
			assert.Len(t, unique(state.Snake), len(state.Snake))
		}
	}
}

func unique(body []structs.Position) map[structs.Position]struct{} {
	set := make(map[structs.Position]struct{}, len(body))
	for _, p := range body {
		set[p] = struct{}{}
	}
	return set
}

func TestAdvanceContractViolationsPanic(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	over := &structs.GameState{Snake: []structs.Position{pos(1, 1)}, Direction: structs.Up, GameOver: true}
	assert.Panics(t, func() { Advance(rng, over, structs.Up) })

	live := &structs.GameState{Snake: []structs.Position{pos(1, 1)}, Direction: structs.Up}
	assert.Panics(t, func() { Advance(rng, live, structs.Direction("sideways")) })
}

func TestPlaceFoodUniformOverFreeCells(t *testing.T) {
	free := map[structs.Position]bool{pos(0, 0): true, pos(7, 3): true, pos(14, 14): true}
	var snake []structs.Position
	for x := 0; x < structs.GridSize; x++ {
		for y := 0; y < structs.GridSize; y++ {
			if !free[pos(x, y)] {
				snake = append(snake, pos(x, y))
			}
		}
	}

	rng := rand.New(rand.NewSource(10))
	counts := make(map[structs.Position]int)
	const draws = 3000
	for i := 0; i < draws; i++ {
		p := PlaceFood(rng, snake)
		require.True(t, free[p], "food placed on occupied cell %v", p)
		counts[p]++
	}

	for cell := range free {
		assert.InDelta(t, draws/len(free), counts[cell], 150, "cell %v", cell)
	}
}

func TestLockedRandConcurrentUse(t *testing.T) {
	rng := NewLockedRand(11)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				n := rng.Intn(structs.GridSize)
				if n < 0 || n >= structs.GridSize {
					t.Errorf("out of range: %d", n)
				}
			}
		}()
	}
	wg.Wait()
}
