package master

import (
	"defusal-go/errcode"
	"defusal-go/hal/halcore"
	"defusal-go/types"
)

// PeerID is a stable index assigned in discovery order.
type PeerID int

// Peer is one bound module.
type Peer struct {
	ID    PeerID
	Addr  uint16
	Line  halcore.GPIOPin
	Type  string
	Needy bool

	Ready  bool
	Solved bool // never reverts
}

// Registry is the arena of bound peers for one session.
type Registry struct {
	peers  []*Peer
	byAddr map[uint16]PeerID
	byLine map[int]PeerID
}

func NewRegistry() *Registry {
	return &Registry{
		byAddr: map[uint16]PeerID{},
		byLine: map[int]PeerID{},
	}
}

// Bind appends a peer. Address and line must both be unused.
func (r *Registry) Bind(addr uint16, line halcore.GPIOPin, id types.Ident) (*Peer, error) {
	if _, ok := r.byAddr[addr]; ok {
		return nil, errcode.New(errcode.Duplicate, "bind", "address already bound")
	}
	if r.LineBound(line.Number()) {
		return nil, errcode.New(errcode.Capacity, "bind", "line already bound")
	}
	p := &Peer{
		ID:    PeerID(len(r.peers)),
		Addr:  addr,
		Line:  line,
		Type:  id.Type,
		Needy: id.Needy,
	}
	r.peers = append(r.peers, p)
	r.byAddr[addr] = p.ID
	r.byLine[line.Number()] = p.ID
	return p, nil
}

func (r *Registry) LineBound(n int) bool {
	_, ok := r.byLine[n]
	return ok
}

func (r *Registry) Len() int { return len(r.peers) }

// Peer returns the peer with id, or nil.
func (r *Registry) Peer(id PeerID) *Peer {
	if id < 0 || int(id) >= len(r.peers) {
		return nil
	}
	return r.peers[id]
}

// ByAddr looks a peer up by bus address.
func (r *Registry) ByAddr(addr uint16) *Peer {
	id, ok := r.byAddr[addr]
	if !ok {
		return nil
	}
	return r.peers[id]
}

// Peers returns the peers in discovery order.
func (r *Registry) Peers() []*Peer { return r.peers }

func (r *Registry) MarkReady(id PeerID) {
	if p := r.Peer(id); p != nil {
		p.Ready = true
	}
}

// MarkSolved reports whether this call changed the flag.
func (r *Registry) MarkSolved(id PeerID) bool {
	p := r.Peer(id)
	if p == nil || p.Solved {
		return false
	}
	p.Solved = true
	return true
}

func (r *Registry) AllReady() bool {
	for _, p := range r.peers {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Registry) AllSolved() bool {
	for _, p := range r.peers {
		if !p.Solved {
			return false
		}
	}
	return true
}

func (r *Registry) SolvedCount() int {
	n := 0
	for _, p := range r.peers {
		if p.Solved {
			n++
		}
	}
	return n
}

// Table is the address->line diagnostic view.
func (r *Registry) Table() []types.PeerView {
	out := make([]types.PeerView, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, types.PeerView{
			ID:     int(p.ID),
			Addr:   p.Addr,
			Line:   p.Line.Number(),
			Type:   p.Type,
			Needy:  p.Needy,
			Ready:  p.Ready,
			Solved: p.Solved,
		})
	}
	return out
}

// Reset drops every peer; only used when a session is abandoned before provisioning.
func (r *Registry) Reset() {
	r.peers = nil
	r.byAddr = map[uint16]PeerID{}
	r.byLine = map[int]PeerID{}
}
