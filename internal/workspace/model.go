package workspace

import "time"

type Workspace struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"inviteCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Channel struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Member struct {
	WorkspaceID string    `json:"workspaceId"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

type CreateChannelRequest struct {
	Name string `json:"name"`
}

type JoinRequest struct {
	InviteCode string `json:"inviteCode"`
}
