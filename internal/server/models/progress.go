package models

// Progress marks a location of a quest as visited by a user.
type Progress struct {
	QuestID    int64
	LocationID int64
}
