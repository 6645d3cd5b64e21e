package models

// Session is the viewer's own identity when they have joined the queue.
type Session struct {
	Token int    `json:"token"`
	Name  string `json:"name"`
}

// InQueue reports whether the session's token is present in snap. A session
// whose token was removed server-side is not queued.
func (s *Session) InQueue(snap *Snapshot) bool {
	if s == nil || snap == nil {
		return false
	}
	return snap.Contains(s.Token)
}
