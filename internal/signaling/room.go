package signaling

// maxParticipants is the hard room cap, enforced server-side.
const maxParticipants = 2

// Room represents a single room where up to two participants can meet.
// Created implicitly on first join, deleted when the last member leaves.
type Room struct {
	// ID is the opaque token the participants joined with.
	ID string

	// Members maps connection ids to clients.
	Members map[string]*Client

	// SharerID is the connection id of the active screen sharer, or ""
	// when the share slot is free. The hub is the only writer.
	SharerID string
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Members: make(map[string]*Client),
	}
}

// full reports whether the room already holds the participant cap.
func (r *Room) full() bool {
	return len(r.Members) >= maxParticipants
}

// empty reports whether no participants remain.
func (r *Room) empty() bool {
	return len(r.Members) == 0
}

// member returns the client with the given connection id, if present.
func (r *Room) member(id string) (*Client, bool) {
	c, ok := r.Members[id]
	return c, ok
}

// others returns every member except the one with the given id.
func (r *Room) others(id string) []*Client {
	out := make([]*Client, 0, len(r.Members))
	for memberID, c := range r.Members {
		if memberID != id {
			out = append(out, c)
		}
	}
	return out
}
