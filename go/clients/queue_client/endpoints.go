package queue_client

const (
	// Base URL
	DefaultBaseURL = "http://localhost:8000"

	// Read endpoint
	StatusEndpoint = "/queue/status"

	// Write endpoints
	JoinEndpoint     = "/queue/join"
	LeaveEndpoint    = "/queue/leave"
	NextEndpoint     = "/queue/next"
	ResetEndpoint    = "/queue/reset"
	MoveEndpoint     = "/queue/move"
	DeleteEndpoint   = "/queue/delete"
	ServeNowEndpoint = "/queue/serve-now"
	EditEndpoint     = "/queue/edit"

	// Headers
	ClientHeader = "X-SlotSync-Client"
)
