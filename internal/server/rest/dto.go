package rest

import "github.com/dmitrijs2005/questkeeper/internal/server/models"

// Request fields are pointers so that a missing field can be told apart
// from an empty one.

type registrationRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
}

type loginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type emailRequest struct {
	Email *string `json:"email"`
}

type activationCodeRequest struct {
	ActivationCode *string `json:"activation_code"`
}

type resetCodeRequest struct {
	Email          *string `json:"email"`
	ActivationCode *string `json:"activation_code"`
}

type newPasswordRequest struct {
	Password *string `json:"password"`
}

type userUpdateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type progressItem struct {
	QuestID    *int64 `json:"quest_id"`
	LocationID *int64 `json:"location_id"`
}

type progressRequest struct {
	Progress []progressItem `json:"progress"`
}

type tempTokenResponse struct {
	Email     string `json:"email"`
	TempToken string `json:"temp_token"`
}

type userResponse struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Token    string `json:"token"`
	IsActive bool   `json:"is_active"`
}

type locationResponse struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Story     string  `json:"story"`
	Epilog    string  `json:"epilog"`
}

type questResponse struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	PreviewURL  string             `json:"preview_url"`
	Description string             `json:"description"`
	Time        int                `json:"time"`
	Distance    int                `json:"distance"`
	Locations   []locationResponse `json:"locations"`
}

type questsResponse struct {
	Quests []questResponse `json:"quests"`
}

type progressEntry struct {
	QuestID    int64 `json:"quest_id"`
	LocationID int64 `json:"location_id"`
}

type progressResponse struct {
	Progress []progressEntry `json:"progress"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type emptyResponse struct{}

func toUserResponse(u *models.User) userResponse {
	return userResponse{Email: u.Email, Name: u.Name, Token: u.Token, IsActive: u.IsActive}
}

func toQuestsResponse(quests []models.Quest) questsResponse {
	resp := questsResponse{Quests: make([]questResponse, 0, len(quests))}
	for _, q := range quests {
		locations := make([]locationResponse, 0, len(q.Locations))
		for _, l := range q.Locations {
			locations = append(locations, locationResponse{
				ID: l.ID, Latitude: l.Latitude, Longitude: l.Longitude, Story: l.Story, Epilog: l.Epilog,
			})
		}
		resp.Quests = append(resp.Quests, questResponse{
			ID:          q.ID,
			Name:        q.Name,
			PreviewURL:  q.PreviewURL,
			Description: q.Description,
			Time:        q.Time,
			Distance:    q.Distance,
			Locations:   locations,
		})
	}
	return resp
}

func toProgressResponse(items []models.Progress) progressResponse {
	resp := progressResponse{Progress: make([]progressEntry, 0, len(items))}
	for _, p := range items {
		resp.Progress = append(resp.Progress, progressEntry{QuestID: p.QuestID, LocationID: p.LocationID})
	}
	return resp
}
