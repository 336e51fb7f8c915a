package gymlog

import (
	"time"
)

// Measurements has a fixed set of optional keys. Absent keys are omitted from the
// stored mapping, so an empty Measurements is stored as {}.
type Measurements struct {
	Chest *float64 `json:"chest,omitempty"`
	Waist *float64 `json:"waist,omitempty"`
	Hips  *float64 `json:"hips,omitempty"`
	Arms  *float64 `json:"arms,omitempty"`
	Legs  *float64 `json:"legs,omitempty"`
}

func (m Measurements) IsEmpty() bool {
	return m.Chest == nil && m.Waist == nil && m.Hips == nil && m.Arms == nil && m.Legs == nil
}

type BodyStat struct {
	ID           string       `json:"id"`
	Date         Date         `json:"date"`
	Weight       *float64     `json:"weight"`
	BodyFat      *float64     `json:"body_fat"`
	Measurements Measurements `json:"measurements"`
	Notes        *string      `json:"notes"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// BodyStatData is the client-writable part of a body stat entry.
type BodyStatData struct {
	Date         Date         `json:"date"`
	Weight       *float64     `json:"weight"`
	BodyFat      *float64     `json:"body_fat"`
	Measurements Measurements `json:"measurements"`
	Notes        *string      `json:"notes"`
}

func (s BodyStat) Data() BodyStatData {
	return BodyStatData{
		Date:         s.Date,
		Weight:       s.Weight,
		BodyFat:      s.BodyFat,
		Measurements: s.Measurements,
		Notes:        s.Notes,
	}
}
