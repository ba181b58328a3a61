// 关于的蛇的更新
package snake

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hoshinonyaruko/snake-frame/structs"
)

// 按钮序号到方向，1-4 依次为 上 下 左 右
var buttonDirections = map[int]structs.Direction{
	1: structs.Up,
	2: structs.Down,
	3: structs.Left,
	4: structs.Right,
}

// DirectionForButton maps a frame button index to a direction.
// Indexes outside 1..4 report false and must not reach Advance.
func DirectionForButton(index int) (structs.Direction, bool) {
	d, ok := buttonDirections[index]
	return d, ok
}

// NewGame 新建一局：单格蛇位于地图中心，向右，随机放置食物
func NewGame(rng *rand.Rand) *structs.GameState {
	center := structs.GridSize / 2
	snake := []structs.Position{{X: center, Y: center}}
	return &structs.GameState{
		Snake:     snake,
		Food:      PlaceFood(rng, snake),
		Direction: structs.Right,
	}
}

// PlaceFood 在整个地图上均匀随机取点，直到取到不在蛇身上的格子
// 只要蛇没有占满地图就一定会结束
func PlaceFood(rng *rand.Rand, snake []structs.Position) structs.Position {
	for {
		pos := structs.Position{
			X: rng.Intn(structs.GridSize),
			Y: rng.Intn(structs.GridSize),
		}
		if !structs.Contains(snake, pos) {
			return pos
		}
	}
}

// Advance moves the snake one cell, mutating state in place.
//
// A request for the exact opposite of the current direction is ignored. Leaving
// the grid or touching any pre-move body cell, the tail included, ends the game
// and leaves snake and score untouched. Eating grows the snake by one and
// relocates the food.
//
// Advancing a finished game or passing an invalid direction is a caller bug and
// panics.
func Advance(rng *rand.Rand, state *structs.GameState, requested structs.Direction) {
	if state.GameOver {
		panic("snake: advance on finished game")
	}
	if !requested.Valid() {
		panic(fmt.Sprintf("snake: invalid direction %q", requested))
	}

	// 不允许直接掉头
	if requested != state.Direction.Opposite() {
		state.Direction = requested
	}

	head := state.Head()
	dx, dy := state.Direction.Offset()
	newHead := structs.Position{X: head.X + dx, Y: head.Y + dy}

	// 撞墙或者咬到自己（按移动前的蛇身判断，尾巴也算）
	if !newHead.InBounds() || state.Occupies(newHead) {
		state.GameOver = true
		return
	}

	state.Snake = append([]structs.Position{newHead}, state.Snake...)
	if newHead == state.Food {
		state.Score++
		state.Food = PlaceFood(rng, state.Snake)
		return
	}
	state.Snake = state.Snake[:len(state.Snake)-1]
}

// lockedSource 让多个请求共享同一个随机源
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// NewLockedRand returns a *rand.Rand that is safe to share between goroutines.
func NewLockedRand(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})
}
