package structs

const (
	GridSize  = 15                  // 每边格子数
	CellSize  = 32                  // 每格像素
	ImageSize = GridSize * CellSize // 输出图片边长
)

// Position 描述游戏地图上的一个坐标位置。
type Position struct {
	X int `json:"x"` // X坐标
	Y int `json:"y"` // Y坐标
}

// InBounds 判断坐标是否在地图内
func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < GridSize && p.Y >= 0 && p.Y < GridSize
}

// Direction 移动方向（"up", "down", "left", "right"）
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Valid reports whether d is one of the four movement directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Opposite 返回相反方向，非法方向返回空字符串
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return ""
}

// Offset returns the one-cell step for d. y grows downward.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// GameState 描述一个玩家的一局游戏。
type GameState struct {
	Snake     []Position `json:"snake"`     // 蛇身，蛇头在前
	Food      Position   `json:"food"`      // 食物位置，不与蛇身重叠
	Direction Direction  `json:"direction"` // 最后一次实际采用的方向
	Score     int        `json:"score"`     // 吃到的食物数
	GameOver  bool       `json:"game_over"` // 一旦为true不再移动
}

// Head 蛇头
func (s *GameState) Head() Position {
	return s.Snake[0]
}

// Occupies reports whether p is any segment of the snake.
func (s *GameState) Occupies(p Position) bool {
	return Contains(s.Snake, p)
}

// Clone 深拷贝，避免存储层与调用方共享蛇身切片
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Snake = make([]Position, len(s.Snake))
	copy(out.Snake, s.Snake)
	return &out
}

// Contains reports whether p is in body.
func Contains(body []Position, p Position) bool {
	for _, b := range body {
		if b == p {
			return true
		}
	}
	return false
}
