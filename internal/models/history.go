package models

import "time"

// HistoryEntry is an immutable record of one successful generation
type HistoryEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Prompt    string    `json:"prompt"`
	Snapshot
}

// AnalysisResult is the structured answer of a track analysis
type AnalysisResult struct {
	Subgenre    string   `json:"subgenre"`
	Mood        string   `json:"mood"`
	BPM         int      `json:"bpm"`
	Key         string   `json:"key"`
	Instruments []string `json:"instruments"`
}
