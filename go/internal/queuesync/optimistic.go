package queuesync

import (
	"fmt"

	"github.com/mcdev12/slotsync/go/internal/models"
)

// SwapAdjacent returns queue with token swapped against its neighbour in dir.
// queue must be a private copy; it is modified in place and returned.
func SwapAdjacent(queue []models.Customer, token int, dir models.Direction) ([]models.Customer, error) {
	i := -1
	for idx, c := range queue {
		if c.Token == token {
			i = idx
			break
		}
	}
	if i < 0 {
		return nil, fmt.Errorf("move token %d: %w", token, ErrTokenNotFound)
	}

	var j int
	switch dir {
	case models.DirectionUp:
		j = i - 1
	case models.DirectionDown:
		j = i + 1
	default:
		return nil, fmt.Errorf("move token %d %q: %w", token, dir, ErrBadDirection)
	}
	if j < 0 || j >= len(queue) {
		return nil, fmt.Errorf("move token %d %s: %w", token, dir, ErrAtEdge)
	}

	queue[i], queue[j] = queue[j], queue[i]
	return queue, nil
}
