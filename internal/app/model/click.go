package model

import "time"

// Click is one persisted redirect event. Rows are written once by the webhook
// consumer and only ever read by the analytics queries.
type Click struct {
	ID        uint      `db:"id" gorm:"primaryKey;autoIncrement"`
	ShortCode string    `db:"short_code" gorm:"size:10;index;not null"`
	ClickedAt time.Time `db:"clicked_at" gorm:"index;not null"`
	Country   string    `db:"country" gorm:"size:64"`
	City      string    `db:"city" gorm:"size:128"`
	Device    string    `db:"device" gorm:"size:32"`
	Browser   string    `db:"browser" gorm:"size:32"`
	OS        string    `db:"os" gorm:"size:32"`
	Referrer  string    `db:"referrer" gorm:"type:text"`
	IPHash    string    `db:"ip_hash" gorm:"size:64"`
}

// DailyClicks is one bucket of the clicks-over-time series.
type DailyClicks struct {
	Date   time.Time `json:"date"`
	Clicks int64     `json:"clicks"`
}

// FieldCount is a generic (value, click count) aggregation row.
type FieldCount struct {
	Value  string `json:"value"`
	Clicks int64  `json:"clicks"`
}

// LinkAnalytics aggregates the click history of a single short link.
type LinkAnalytics struct {
	ClicksOverTime []DailyClicks `json:"clicks_over_time"`
	TopCountries   []FieldCount  `json:"top_countries"`
	Devices        []FieldCount  `json:"devices"`
	Browsers       []FieldCount  `json:"browsers"`
	TopReferrers   []FieldCount  `json:"top_referrers"`
}
