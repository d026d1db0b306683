package models

// Direction 投票方向
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection 解析 "up"/"down"
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), true
	}
	return "", false
}
