package notify

import "sync"

// Panel is the local notification list. Fetched entries are replaced on
// every refresh; live entries accumulate newest first. Read marks are
// remembered by entry ID, so a refresh never turns a read entry unread.
type Panel struct {
	mu      sync.Mutex
	fetched []Entry
	live    []Entry
	read    map[string]bool
}

// NewPanel returns an empty panel.
func NewPanel() *Panel {
	return &Panel{read: make(map[string]bool)}
}

// Replace swaps in a fresh aggregation result.
func (p *Panel) Replace(entries []Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetched = make([]Entry, len(entries))
	for i, e := range entries {
		p.fetched[i] = p.remember(e)
	}
}

// Push adds a live entry at the top.
func (p *Panel) Push(e Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live = append([]Entry{p.remember(e)}, p.live...)
}

func (p *Panel) remember(e Entry) Entry {
	if e.Read {
		p.read[e.ID] = true
	}
	if p.read[e.ID] {
		e.Read = true
	}
	return e
}

// Entries returns live entries followed by fetched ones.
func (p *Panel) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, 0, len(p.live)+len(p.fetched))
	out = append(out, p.live...)
	return append(out, p.fetched...)
}

// MarkRead marks every entry with id read and reports whether one existed.
func (p *Panel) MarkRead(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	found := false
	for _, list := range [][]Entry{p.live, p.fetched} {
		for i := range list {
			if list[i].ID == id {
				list[i].Read = true
				found = true
			}
		}
	}
	if found {
		p.read[id] = true
	}
	return found
}

// MarkAllRead marks every listed entry read.
func (p *Panel) MarkAllRead() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range [][]Entry{p.live, p.fetched} {
		for i := range list {
			list[i].Read = true
			p.read[list[i].ID] = true
		}
	}
}

// Delete removes the entry from the local list. A later refresh may bring
// a fetched entry back.
func (p *Panel) Delete(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	var found bool
	p.live, found = without(p.live, id)
	var inFetched bool
	p.fetched, inFetched = without(p.fetched, id)
	return found || inFetched
}

func without(list []Entry, id string) ([]Entry, bool) {
	out := list[:0]
	found := false
	for _, e := range list {
		if e.ID == id {
			found = true
			continue
		}
		out = append(out, e)
	}
	return out, found
}

// Reset drops every entry and read mark, e.g. when the user signs out.
func (p *Panel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetched, p.live = nil, nil
	p.read = make(map[string]bool)
}

// UnreadCount is the number of listed entries not yet read.
func (p *Panel) UnreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, list := range [][]Entry{p.live, p.fetched} {
		for _, e := range list {
			if !e.Read {
				n++
			}
		}
	}
	return n
}
