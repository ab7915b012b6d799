package dto

import "github.com/ahmetcoskunkizilkaya/moodfeed/internal/users"

type FollowRequestBody struct {
	Username string `json:"username" validate:"required,username"`
}

type UsernamesResponse struct {
	Usernames []string `json:"usernames"`
	Count     int      `json:"count"`
}

func NewUsernamesResponse(names []string) UsernamesResponse {
	if names == nil {
		names = []string{}
	}
	return UsernamesResponse{Usernames: names, Count: len(names)}
}

type RenameRequest struct {
	Name string `json:"name" validate:"required,max=60"`
}

type UserSearchResponse struct {
	Users []users.User `json:"users"`
	Count int          `json:"count"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
