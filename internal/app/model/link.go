package model

import "time"

// Link binds a short code to its destination URL. Postgres is the system of
// record; the Redis entry derived from it is never authoritative.
type Link struct {
	ShortCode string    `db:"short_code" gorm:"primaryKey;size:10"`
	URL       string    `db:"url" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}
