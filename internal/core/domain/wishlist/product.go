package wishlist

import (
	"strings"
)

// ProductRef is the product input accepted from UI surfaces. Products coming from different
// marketplace schemas carry their identifier in different fields; see ResolveExternalID.
type ProductRef struct {
	ExternalID FlexibleID `json:"externalId,omitempty"`
	OfferID    FlexibleID `json:"offerId,omitempty"`
	ID         FlexibleID `json:"id,omitempty"`
	StorageID  FlexibleID `json:"_id,omitempty"`

	Image  string   `json:"image,omitempty"`
	Images []string `json:"images,omitempty"`
	Price  float64  `json:"price,omitempty"`
	Name   string   `json:"name,omitempty"`
	Title  string   `json:"title,omitempty"`

	// Optional overrides of the session source/country context.
	Source  string `json:"source,omitempty"`
	Country string `json:"country,omitempty"`
}

// ResolveExternalID picks the identifier in priority order externalId, offerId, id, _id.
func ResolveExternalID(ref ProductRef) (string, bool) {
	for _, candidate := range []FlexibleID{ref.ExternalID, ref.OfferID, ref.ID, ref.StorageID} {
		if id := NormalizeID(candidate); id != "" {
			return id, true
		}
	}
	return "", false
}

// CandidateIDs returns every non-empty identifier of ref in priority order.
func (p ProductRef) CandidateIDs() []string {
	return NormalizeIDs([]FlexibleID{p.ExternalID, p.OfferID, p.ID, p.StorageID})
}

// DisplayImage returns image, falling back to the first of images.
func (p ProductRef) DisplayImage() string {
	if img := strings.TrimSpace(p.Image); img != "" {
		return img
	}
	for _, img := range p.Images {
		if img = strings.TrimSpace(img); img != "" {
			return img
		}
	}
	return ""
}

// DisplayTitle returns name, falling back to title.
func (p ProductRef) DisplayTitle() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(p.Title)
}

// NewEntry builds the remote add payload for ref. Source and country come from the session
// unless the ref overrides them. The entry is validated before it is returned.
func NewEntry(ref ProductRef, source, country string) (Entry, error) {
	id, ok := ResolveExternalID(ref)
	if !ok {
		return Entry{}, ErrUnresolvableIdentifier
	}
	if ref.Source != "" {
		source = ref.Source
	}
	if ref.Country != "" {
		country = ref.Country
	}

	entry := Entry{
		ExternalID: FlexibleID(id),
		Title:      ref.DisplayTitle(),
		ImageURL:   ref.DisplayImage(),
		Price:      ref.Price,
		Source:     source,
		Country:    country,
	}
	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}
