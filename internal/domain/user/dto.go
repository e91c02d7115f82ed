package user

// UpdateRoleRequest for PUT /users/{id}/role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,global_role"`
}

// SetBannedRequest for PUT /users/{id}/ban
type SetBannedRequest struct {
	Banned bool `json:"banned"`
}
