package models

// Quest is a static catalog entry. Time is the estimated duration and
// Distance the route length, both as seeded.
type Quest struct {
	ID          int64
	Name        string
	PreviewURL  string
	Description string
	Time        int
	Distance    int
	Locations   []Location
}

// Location is a point of a quest route.
type Location struct {
	ID        int64
	QuestID   int64
	Latitude  float64
	Longitude float64
	Story     string
	Epilog    string
}
