package session

import (
	"errors"
	"fmt"
)

type MemberID string

// Member is one roster entry. The first member of a session's roster is,
// by convention, the local participant.
type Member struct {
	ID MemberID `json:"id"`
}

// ErrorKind distinguishes the expected membership rejections so callers
// can branch on them without unwrapping chains by hand.
type ErrorKind string

const (
	KindIndexOutOfRange          ErrorKind = "INDEX_OUT_OF_RANGE"
	KindCannotRemoveJoinedMember ErrorKind = "CANNOT_REMOVE_JOINED_MEMBER"
	KindNotAllowedToJoin         ErrorKind = "NOT_ALLOWED_TO_JOIN_SESSION"
	KindMemberAlreadyInSession   ErrorKind = "MEMBER_ALREADY_IN_SESSION"
	KindFullSession              ErrorKind = "FULL_SESSION"
)

// Error is a typed membership rejection. These are routine business
// outcomes, not failures: transport code maps them to acknowledgement
// codes instead of logging them as errors.
type Error struct {
	Kind   ErrorKind
	Member MemberID
}

func (e *Error) Error() string {
	return fmt.Sprintf("session: %s (member %s)", e.Kind, e.Member)
}

// KindOf extracts the rejection kind from err, or "" if err is not a
// membership rejection.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// Observer is notified synchronously around membership transitions.
// Observers are best-effort listeners: they cannot veto a transition,
// only CanJoin gates it. Transport backends subscribe here instead of
// subclassing the session.
type Observer interface {
	MemberConnecting(id MemberID)
	// MemberConnected fires after every connect attempt; err is nil when
	// the join was accepted and the typed rejection otherwise.
	MemberConnected(id MemberID, err error)
	MemberDisconnecting(id MemberID)
	MemberDisconnected(id MemberID)
}

// Session is a capacity-bounded roster of call participants. Capacity
// equals the roster length; a member id appears among the joined at most
// once. All methods assume the caller serializes access per instance, as
// transitions arrive one at a time from a connection-event stream.
type Session struct {
	members   []Member
	joined    []MemberID
	observers []Observer
}

// New creates a session with a fixed, ordered member-id roster.
func New(memberIDs []MemberID) *Session {
	members := make([]Member, 0, len(memberIDs))
	for _, id := range memberIDs {
		members = append(members, Member{ID: id})
	}
	return &Session{members: members}
}

// Restore rebuilds a session from a persisted snapshot, preserving the
// joined list. Used by the shared-cache tracker.
func Restore(memberIDs, joined []MemberID) *Session {
	s := New(memberIDs)
	s.joined = append(s.joined, joined...)
	return s
}

func (s *Session) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Session) Capacity() int {
	return len(s.members)
}

func (s *Session) Members() []Member {
	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out
}

func (s *Session) Joined() []MemberID {
	out := make([]MemberID, len(s.joined))
	copy(out, s.joined)
	return out
}

// Local returns the local participant, the first roster entry.
func (s *Session) Local() (Member, bool) {
	if len(s.members) == 0 {
		return Member{}, false
	}
	return s.members[0], true
}

// CanJoin reports whether id may join right now. A nil result means yes;
// otherwise the typed rejection explains why.
func (s *Session) CanJoin(id MemberID) error {
	if s.indexOf(id) < 0 {
		return &Error{Kind: KindNotAllowedToJoin, Member: id}
	}
	if s.isJoined(id) {
		return &Error{Kind: KindMemberAlreadyInSession, Member: id}
	}
	if len(s.joined) >= len(s.members) {
		return &Error{Kind: KindFullSession, Member: id}
	}
	return nil
}

// OnMemberConnect handles a transport-level connect notification. The
// post-observer fires whether or not the join was accepted.
func (s *Session) OnMemberConnect(id MemberID) error {
	for _, o := range s.observers {
		o.MemberConnecting(id)
	}

	err := s.CanJoin(id)
	if err == nil {
		s.joined = append(s.joined, id)
	}

	for _, o := range s.observers {
		o.MemberConnected(id, err)
	}

	return err
}

// OnMemberDisconnect handles a transport-level disconnect notification.
// Removing an id that is not joined is a no-op.
func (s *Session) OnMemberDisconnect(id MemberID) {
	for _, o := range s.observers {
		o.MemberDisconnecting(id)
	}

	for i, joined := range s.joined {
		if joined == id {
			s.joined = append(s.joined[:i], s.joined[i+1:]...)
			break
		}
	}

	for _, o := range s.observers {
		o.MemberDisconnected(id)
	}
}

// AddMember extends the roster, and with it the capacity, by one.
func (s *Session) AddMember(id MemberID) error {
	if s.indexOf(id) >= 0 {
		return &Error{Kind: KindMemberAlreadyInSession, Member: id}
	}
	s.members = append(s.members, Member{ID: id})
	return nil
}

// RemoveMember evicts id from the roster. A joined member must leave
// first; removing an id that is not on the roster is a no-op.
func (s *Session) RemoveMember(id MemberID) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}
	if s.isJoined(id) {
		return &Error{Kind: KindCannotRemoveJoinedMember, Member: id}
	}
	s.members = append(s.members[:idx], s.members[idx+1:]...)
	return nil
}

// SetMember replaces the roster entry at index. If the prior occupant was
// joined, the joined entry is swapped in place: an identity change, not a
// leave/join transition.
func (s *Session) SetMember(index int, m Member) error {
	if index < 0 || index >= len(s.members) {
		return &Error{Kind: KindIndexOutOfRange, Member: m.ID}
	}

	prev := s.members[index]
	s.members[index] = m

	for i, joined := range s.joined {
		if joined == prev.ID {
			s.joined[i] = m.ID
			break
		}
	}

	return nil
}

func (s *Session) indexOf(id MemberID) int {
	for i, m := range s.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) isJoined(id MemberID) bool {
	for _, joined := range s.joined {
		if joined == id {
			return true
		}
	}
	return false
}
