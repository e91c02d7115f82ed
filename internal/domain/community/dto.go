package community

// CreateRequest for POST /communities
type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=64"`
	Slug        string `json:"slug" validate:"required,min=3,max=64,lowercase,alphanum"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	IsPrivate   bool   `json:"is_private"`
}
