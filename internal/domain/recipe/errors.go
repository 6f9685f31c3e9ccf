package recipe

import "errors"

// Domain errors for recipe operations

var (
	ErrURLRequired    = errors.New("URL is required")
	ErrInvalidURL     = errors.New("Invalid URL format")
	ErrTitleRequired  = errors.New("recipe title is required")
	ErrTitleTooLong   = errors.New("recipe title must not exceed 300 characters")
	ErrMissingOwner   = errors.New("recipe must belong to a user")
	ErrRecipeNotFound = errors.New("recipe not found")
)
