package app

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
)

// Registry maps room -> session id -> display name.
// Only inbound protocol events mutate it; readers get copies.
type Registry struct {
	mu    sync.Mutex
	rooms map[domain.RoomName]map[domain.SessionID]string
}

var _ core.RoomRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomName]map[domain.SessionID]string)}
}

// ApplySnapshot replaces the whole registry with the server's listing.
func (r *Registry) ApplySnapshot(rooms map[domain.RoomName]map[domain.SessionID]string) {
	next := make(map[domain.RoomName]map[domain.SessionID]string, len(rooms))
	for name, members := range rooms {
		ms := make(map[domain.SessionID]string, len(members))
		for sid, n := range members {
			if n == "" {
				log.Warn().Str("module", "app.registry").Str("room", string(name)).Str("sid", string(sid)).Msg("snapshot member without name skipped")
				continue
			}
			ms[sid] = n
		}
		next[name] = ms
	}
	r.mu.Lock()
	r.rooms = next
	r.mu.Unlock()
	log.Debug().Str("module", "app.registry").Int("rooms", len(next)).Msg("applied snapshot")
}

// ApplyJoin materializes the room when the local session joins it. A join
// of somebody else only lands in a room this client already sees.
func (r *Registry) ApplyJoin(room domain.RoomName, m domain.Member, local domain.SessionID) {
	if _, err := domain.NewMember(m.SessionID, m.DisplayName); err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("room", string(room)).Str("sid", string(m.SessionID)).Msg("join ignored")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.SessionID == local {
		if _, ok := r.rooms[room]; !ok {
			r.rooms[room] = make(map[domain.SessionID]string)
		}
	}
	members, ok := r.rooms[room]
	if !ok {
		log.Debug().Str("module", "app.registry").Str("room", string(room)).Str("sid", string(m.SessionID)).Msg("join into unknown room dropped")
		return
	}
	members[m.SessionID] = m.DisplayName
	log.Debug().Str("module", "app.registry").Str("room", string(room)).Str("sid", string(m.SessionID)).Msg("member joined")
}

// ApplyQuit removes the whole room when the local session leaves it and only
// the member otherwise.
func (r *Registry) ApplyQuit(room domain.RoomName, sid, local domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sid == local {
		delete(r.rooms, room)
		log.Debug().Str("module", "app.registry").Str("room", string(room)).Msg("left room")
		return
	}
	if members, ok := r.rooms[room]; ok {
		delete(members, sid)
		log.Debug().Str("module", "app.registry").Str("room", string(room)).Str("sid", string(sid)).Msg("member quit")
	}
}

// ApplyRename updates sid in every room it appears in and creates nothing.
func (r *Registry) ApplyRename(sid domain.SessionID, name string) {
	if name == "" {
		log.Warn().Str("module", "app.registry").Str("sid", string(sid)).Msg("rename to empty name ignored")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, members := range r.rooms {
		if _, ok := members[sid]; ok {
			members[sid] = name
			n++
		}
	}
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Int("rooms", n).Msg("member renamed")
}

// Seed creates room when the registry is empty and reports whether it did.
func (r *Registry) Seed(room domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rooms) > 0 {
		return false
	}
	r.rooms[room] = make(map[domain.SessionID]string)
	return true
}

func (r *Registry) Snapshot() map[domain.RoomName]map[domain.SessionID]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.RoomName]map[domain.SessionID]string, len(r.rooms))
	for name, members := range r.rooms {
		out[name] = maps.Clone(members)
	}
	return out
}

// Rooms returns the room names sorted.
func (r *Registry) Rooms() []domain.RoomName {
	r.mu.Lock()
	names := lo.Keys(r.rooms)
	r.mu.Unlock()
	slices.Sort(names)
	return names
}

// Members returns the members of room ordered by display name, then id.
func (r *Registry) Members(room domain.RoomName) []domain.Member {
	r.mu.Lock()
	out := lo.MapToSlice(r.rooms[room], func(sid domain.SessionID, name string) domain.Member {
		return domain.Member{SessionID: sid, DisplayName: name}
	})
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b domain.Member) int {
		if c := cmp.Compare(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return cmp.Compare(a.SessionID, b.SessionID)
	})
	return out
}
