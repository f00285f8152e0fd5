package wishlist

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Entry is one item of the remote wishlist collection.
// ExternalID is the only stable join key; StorageID is never used for identity or deletion.
type Entry struct {
	StorageID  string     `json:"_id,omitempty" validate:"-"`
	ExternalID FlexibleID `json:"externalId" validate:"required"`
	Title      string     `json:"title" validate:"required"`
	ImageURL   string     `json:"imageUrl" validate:"required"`
	Price      float64    `json:"price" validate:"gt=0"`
	Source     string     `json:"source"`
	Country    string     `json:"country"`
	CreatedAt  time.Time  `json:"createdAt,omitzero"`
	UpdatedAt  time.Time  `json:"updatedAt,omitzero"`
}

// ID returns the normalized external identifier.
func (e Entry) ID() string {
	return NormalizeID(e.ExternalID)
}

// Validate checks the minimum fields required to add the entry remotely.
func (e Entry) Validate() error {
	if err := validate.Struct(e); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), msgForTag(fe)))
			}
			return fmt.Errorf("%w: %s", ErrInvalidProductData, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidProductData, err)
	}
	return nil
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// EntryIDs projects a collection onto normalized external identifiers.
func EntryIDs(entries []Entry) []string {
	ids := make([]FlexibleID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ExternalID)
	}
	return NormalizeIDs(ids)
}

// RemoteList is the outcome of a successful remote call.
// Authoritative is false when the response did not carry the collection.
type RemoteList struct {
	Entries       []Entry
	Authoritative bool
	Message       string
}

// IDs returns the external identifiers of the collection.
func (l RemoteList) IDs() []string {
	return EntryIDs(l.Entries)
}

// Contains reports whether id is part of the collection.
func (l RemoteList) Contains(id string) bool {
	for _, e := range l.Entries {
		if e.ID() == id {
			return true
		}
	}
	return false
}
