package queuesync

import "errors"

// Precondition errors. Each is returned before any request reaches the server.
var (
	ErrNoSnapshot    = errors.New("no queue snapshot held yet")
	ErrTokenNotFound = errors.New("token not in queue")
	ErrAtEdge        = errors.New("customer is already at the queue edge")
	ErrNoServices    = errors.New("at least one service is required")
	ErrNameRequired  = errors.New("name is required")
	ErrQueueEmpty    = errors.New("queue is empty")
	ErrNotConfirmed  = errors.New("destructive action was not confirmed")
	ErrNoSession     = errors.New("no session on this screen")
	ErrNotQueued     = errors.New("session is no longer in the queue")
	ErrAlreadyQueued = errors.New("session is already in the queue")
	ErrThrottled     = errors.New("action repeated too quickly")
	ErrAdminOnly     = errors.New("action is only available on the admin screen")
	ErrBadDirection  = errors.New("direction must be up or down")
)
