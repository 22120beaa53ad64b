package model

import "time"

type Pet struct {
	ID        int64
	OwnerID   int64
	Name      string
	Species   string
	CreatedAt time.Time
}
