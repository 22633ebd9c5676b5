package api

import "time"

// Availability slot batch mutation. Timestamps are RFC3339, UTC.

type SlotCreate struct {
	Title   string `json:"title"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Repeat  string `json:"repeat"`
	Weekday *int   `json:"weekday,omitempty"`
}

type SlotUpdate struct {
	ID    string  `json:"id"`
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
}

type SlotDelete struct {
	ID string `json:"id"`
}

type SlotBatchRequest struct {
	OwnerID string       `json:"owner_id"`
	Creates []SlotCreate `json:"creates"`
	Updates []SlotUpdate `json:"updates"`
	Deletes []SlotDelete `json:"deletes"`
}

type SlotResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Title     string     `json:"title"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	Repeat    string     `json:"repeat"`
	Weekday   int        `json:"weekday"`
	TimeStart string     `json:"time_start"`
	TimeEnd   string     `json:"time_end"`
}

type DiscreteSlot struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"owner_id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

type DayAvailability struct {
	Day   string         `json:"day"`
	Slots []DiscreteSlot `json:"slots"`
}

// Live session membership.

type SessionCreateRequest struct {
	Members []string `json:"members"`
}

type SessionMemberRequest struct {
	MemberID string `json:"member_id"`
}

type SessionResponse struct {
	ID       string   `json:"id"`
	Members  []string `json:"members"`
	Joined   []string `json:"joined"`
	Capacity int      `json:"capacity"`
}
