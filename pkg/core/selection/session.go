package selection

import (
	"fmt"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/window"
)

// Member is one selected resource together with its optional preferred
// sub-window override
type Member struct {
	ResourceID string
	Preferred  *model.PreferredWindow
}

// Session is the ordered, human-curated subset of candidates prepared for
// commitment. A member's priority is its position in the list, so rank
// uniqueness holds by construction. Sessions are values: every operation
// returns a new Session and leaves the receiver untouched, which keeps the
// curation logic side-effect-free; persistence of overrides is the
// caller's concern
type Session struct {
	members []Member
}

// NewSession returns an empty session
func NewSession() Session {
	return Session{}
}

// Members returns a copy of the ordered membership
func (s Session) Members() []Member {
	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out
}

// Len returns the number of selected resources
func (s Session) Len() int {
	return len(s.members)
}

// Contains reports whether the resource is selected
func (s Session) Contains(resourceID string) bool {
	return s.indexOf(resourceID) >= 0
}

// Preferred returns the override for a selected resource, or nil
func (s Session) Preferred(resourceID string) *model.PreferredWindow {
	i := s.indexOf(resourceID)
	if i < 0 {
		return nil
	}
	return s.members[i].Preferred
}

// Toggle adds the resource at the end of the selection if absent, or
// removes it if present. Removal also drops any preferred-window override
// so no override can outlive its membership
func (s Session) Toggle(resourceID string) Session {
	i := s.indexOf(resourceID)
	if i < 0 {
		next := s.clone()
		next.members = append(next.members, Member{ResourceID: resourceID})
		return next
	}

	next := Session{members: make([]Member, 0, len(s.members)-1)}
	next.members = append(next.members, s.members[:i]...)
	next.members = append(next.members, s.members[i+1:]...)
	return next
}

// Reorder moves the member at from to position to, shifting the members in
// between. Out-of-range indices leave the session unchanged
func (s Session) Reorder(from, to int) Session {
	if from < 0 || from >= len(s.members) || to < 0 || to >= len(s.members) || from == to {
		return s
	}

	next := s.clone()
	moved := next.members[from]
	next.members = append(next.members[:from], next.members[from+1:]...)

	next.members = append(next.members, Member{})
	copy(next.members[to+1:], next.members[to:])
	next.members[to] = moved
	return next
}

// SetPreferredWindow sets the override for a selected resource, or clears
// it when pref is nil. The window must overlap the resource's availability;
// arbitrary ranges are rejected here rather than silently accepted
func (s Session) SetPreferredWindow(resourceID string, availability model.Window, pref *model.PreferredWindow) (Session, error) {
	i := s.indexOf(resourceID)
	if i < 0 {
		return s, fmt.Errorf("resource %s is not selected", resourceID)
	}

	if pref != nil && !window.Overlaps(availability, pref.Window) {
		return s, fmt.Errorf("preferred window %s..%s does not overlap the resource's availability",
			pref.Window.Start.Format("2006-01-02"), pref.Window.End.Format("2006-01-02"))
	}

	next := s.clone()
	if pref == nil {
		next.members[i].Preferred = nil
		return next, nil
	}

	p := *pref
	next.members[i].Preferred = &p
	return next, nil
}

func (s Session) indexOf(resourceID string) int {
	for i, m := range s.members {
		if m.ResourceID == resourceID {
			return i
		}
	}
	return -1
}

func (s Session) clone() Session {
	members := make([]Member, len(s.members))
	copy(members, s.members)
	return Session{members: members}
}
