package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

const (
	sessionTTL = 24 * time.Hour
	maxRetries = 5
)

// State is the membership snapshot persisted in the shared cache, keyed
// by session id.
type State struct {
	Members []MemberID `json:"members"`
	Joined  []MemberID `json:"joined"`
}

// Tracker keeps session membership in a shared redis cache so that every
// server process observes the same roster. Each transition is an atomic
// single-key read-modify-write replaying the in-process Session semantics
// under an optimistic transaction.
type Tracker struct {
	client *redis.Client
}

func NewTracker(redisAddr string) (*Tracker, error) {
	const op = "session.NewTracker"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Tracker{client: client}, nil
}

func (t *Tracker) Close() error {
	return t.client.Close()
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create registers a session with its fixed member roster. Fails with
// ErrSessionExists when the id is already tracked.
func (t *Tracker) Create(ctx context.Context, id string, members []MemberID) (State, error) {
	const op = "session.Tracker.Create"

	state := State{Members: members, Joined: []MemberID{}}

	data, err := json.Marshal(state)
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := t.client.SetNX(ctx, sessionKey(id), data, sessionTTL).Result()
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return State{}, fmt.Errorf("%s: %w", op, ErrSessionExists)
	}

	return state, nil
}

// Snapshot returns the current membership state of a session.
func (t *Tracker) Snapshot(ctx context.Context, id string) (State, error) {
	const op = "session.Tracker.Snapshot"

	raw, err := t.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", op, err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("%s: %w", op, err)
	}

	return state, nil
}

// Join relays a connect event into the shared roster. Membership
// rejections come back as typed session errors, not infrastructure
// failures.
func (t *Tracker) Join(ctx context.Context, id string, member MemberID) (State, error) {
	return t.transition(ctx, id, func(s *Session) error {
		return s.OnMemberConnect(member)
	})
}

// Leave relays a disconnect event into the shared roster. Leaving twice
// is a no-op, same as the in-process machine.
func (t *Tracker) Leave(ctx context.Context, id string, member MemberID) (State, error) {
	return t.transition(ctx, id, func(s *Session) error {
		s.OnMemberDisconnect(member)
		return nil
	})
}

// Delete discards a session once the call has ended.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	const op = "session.Tracker.Delete"

	if err := t.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (t *Tracker) transition(ctx context.Context, id string, apply func(*Session) error) (State, error) {
	const op = "session.Tracker.transition"

	key := sessionKey(id)
	var out State

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := t.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			if err != nil {
				return err
			}

			var state State
			if err := json.Unmarshal(raw, &state); err != nil {
				return err
			}

			sess := Restore(state.Members, state.Joined)
			if err := apply(sess); err != nil {
				return err
			}

			state = State{Members: rosterIDs(sess.Members()), Joined: sess.Joined()}

			data, err := json.Marshal(state)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, sessionTTL)
				return nil
			})
			if err == nil {
				out = state
			}
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return State{}, fmt.Errorf("%s: %w", op, err)
		}
		return out, nil
	}

	return State{}, fmt.Errorf("%s: contention on session %s, retries exhausted", op, id)
}

func rosterIDs(members []Member) []MemberID {
	ids := make([]MemberID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}
