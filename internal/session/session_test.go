package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CapacityEqualsRoster(t *testing.T) {
	s := New([]MemberID{"tutor", "student"})

	assert.Equal(t, 2, s.Capacity())

	local, ok := s.Local()
	require.True(t, ok)
	assert.Equal(t, MemberID("tutor"), local.ID)
}

func TestSession_JoinFlow(t *testing.T) {
	s := New([]MemberID{"tutor", "student"})

	require.NoError(t, s.OnMemberConnect("tutor"))
	require.NoError(t, s.OnMemberConnect("student"))

	assert.Equal(t, []MemberID{"tutor", "student"}, s.Joined())

	// A non-listed id is never allowed, even with free capacity elsewhere.
	err := s.CanJoin("stranger")
	assert.Equal(t, KindNotAllowedToJoin, KindOf(err))

	// A listed but already-joined id is reported as such.
	err = s.CanJoin("tutor")
	assert.Equal(t, KindMemberAlreadyInSession, KindOf(err))
}

func TestSession_FullSession(t *testing.T) {
	s := New([]MemberID{"a", "b"})

	require.NoError(t, s.OnMemberConnect("a"))
	require.NoError(t, s.OnMemberConnect("b"))
	require.NoError(t, s.AddMember("c"))

	// Roster grew, capacity grew with it.
	require.NoError(t, s.OnMemberConnect("c"))

	// A restored snapshot whose joined list already fills the capacity
	// rejects any further join, even for a listed member.
	full := Restore([]MemberID{"a", "b"}, []MemberID{"x", "y"})
	err := full.CanJoin("a")
	assert.Equal(t, KindFullSession, KindOf(err))
}

func TestSession_RejoinAfterLeave(t *testing.T) {
	s := New([]MemberID{"tutor", "student"})

	require.NoError(t, s.OnMemberConnect("student"))
	s.OnMemberDisconnect("student")
	assert.Empty(t, s.Joined())

	require.NoError(t, s.OnMemberConnect("student"))
	assert.Equal(t, []MemberID{"student"}, s.Joined())

	// Never a duplicate id among the joined.
	err := s.OnMemberConnect("student")
	assert.Equal(t, KindMemberAlreadyInSession, KindOf(err))
	assert.Equal(t, []MemberID{"student"}, s.Joined())
}

func TestSession_DisconnectUnknownIsNoop(t *testing.T) {
	s := New([]MemberID{"tutor"})

	require.NoError(t, s.OnMemberConnect("tutor"))
	s.OnMemberDisconnect("stranger")

	assert.Equal(t, []MemberID{"tutor"}, s.Joined())
}

func TestSession_RemoveJoinedMemberRejected(t *testing.T) {
	s := New([]MemberID{"tutor", "student"})

	require.NoError(t, s.OnMemberConnect("student"))

	err := s.RemoveMember("student")
	assert.Equal(t, KindCannotRemoveJoinedMember, KindOf(err))
	assert.Len(t, s.Members(), 2, "roster unchanged after rejected removal")

	s.OnMemberDisconnect("student")
	require.NoError(t, s.RemoveMember("student"))
	assert.Len(t, s.Members(), 1)
}

func TestSession_AddDuplicateRejected(t *testing.T) {
	s := New([]MemberID{"tutor"})

	err := s.AddMember("tutor")
	assert.Equal(t, KindMemberAlreadyInSession, KindOf(err))
	assert.Equal(t, 1, s.Capacity())
}

func TestSession_SetMemberIdentitySwap(t *testing.T) {
	s := New([]MemberID{"tutor", "student"})

	require.NoError(t, s.OnMemberConnect("student"))

	// Swapping a joined roster slot retargets the joined entry in place;
	// it is not a leave/join transition.
	require.NoError(t, s.SetMember(1, Member{ID: "proxy"}))
	assert.Equal(t, []MemberID{"proxy"}, s.Joined())

	err := s.SetMember(5, Member{ID: "x"})
	assert.Equal(t, KindIndexOutOfRange, KindOf(err))
}

type recordingObserver struct {
	connecting    []MemberID
	connected     []MemberID
	connectErrs   []error
	disconnecting []MemberID
	disconnected  []MemberID
}

func (r *recordingObserver) MemberConnecting(id MemberID) { r.connecting = append(r.connecting, id) }
func (r *recordingObserver) MemberConnected(id MemberID, err error) {
	r.connected = append(r.connected, id)
	r.connectErrs = append(r.connectErrs, err)
}
func (r *recordingObserver) MemberDisconnecting(id MemberID) {
	r.disconnecting = append(r.disconnecting, id)
}
func (r *recordingObserver) MemberDisconnected(id MemberID) {
	r.disconnected = append(r.disconnected, id)
}

func TestSession_ObserversSeeEveryAttempt(t *testing.T) {
	s := New([]MemberID{"tutor"})
	obs := &recordingObserver{}
	s.Subscribe(obs)

	require.NoError(t, s.OnMemberConnect("tutor"))

	// Rejected attempts still notify the post-observer, with the reason.
	err := s.OnMemberConnect("stranger")
	require.Error(t, err)

	s.OnMemberDisconnect("tutor")

	assert.Equal(t, []MemberID{"tutor", "stranger"}, obs.connecting)
	assert.Equal(t, []MemberID{"tutor", "stranger"}, obs.connected)
	require.Len(t, obs.connectErrs, 2)
	assert.NoError(t, obs.connectErrs[0])
	assert.Equal(t, KindNotAllowedToJoin, KindOf(obs.connectErrs[1]))
	assert.Equal(t, []MemberID{"tutor"}, obs.disconnected)
}

func TestSession_KindOfForeignError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
}
