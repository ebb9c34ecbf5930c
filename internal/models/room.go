package models

import "time"

// RoomStatus is the matchmaking-side state of a room
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "WAITING"
	RoomMatched  RoomStatus = "MATCHED"
	RoomPlaying  RoomStatus = "PLAYING"
	RoomFinished RoomStatus = "FINISHED"
)

// RoomType is the mode a room was opened in
type RoomType string

const (
	RoomCasual  RoomType = "CASUAL"
	RoomRanked  RoomType = "RANKED"
	RoomPrivate RoomType = "PRIVATE"
)

// Room is the directory entry the engine reads before touching a session.
// Code is the liveness token tracked by the room code cache.
type Room struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Status    RoomStatus `json:"status"`
	Type      RoomType   `json:"type"`
	Players   []string   `json:"players,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
