package users

import (
	"time"

	"casper-backend/internal/models"
)

type UserResponse struct {
	ID              uint           `json:"id"`
	Email           string         `json:"email"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	IsActive        bool           `json:"is_active"`
	IsStaff         bool           `json:"is_staff"`
	IsAdmin         bool           `json:"is_admin"`
	IsSuperuser     bool           `json:"is_superuser"`
	DateJoined      time.Time      `json:"date_joined"`
	PendingRequests []UserResponse `json:"pending_requests"` // null unless the user is an admin
}

// NewUserResponse: pending is only attached to admin users.
func NewUserResponse(u models.User, pending []models.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff(),
		IsAdmin:     u.IsAdmin,
		IsSuperuser: u.IsSuperuser,
		DateJoined:  u.DateJoined,
	}
	if u.IsAdmin {
		resp.PendingRequests = make([]UserResponse, 0, len(pending))
		for _, p := range pending {
			resp.PendingRequests = append(resp.PendingRequests, NewUserResponse(p, nil))
		}
	}
	return resp
}
