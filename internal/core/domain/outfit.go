package domain

import "time"

type OutfitStatus string

const (
	StatusSubmitted  OutfitStatus = "submitted"
	StatusProcessing OutfitStatus = "processing"
	StatusReady      OutfitStatus = "ready"
	StatusFailed     OutfitStatus = "failed"
)

type Outfit struct {
	ID          string               `json:"id"`
	Filename    string               `json:"filename"`
	MimeType    string               `json:"mime_type"`
	StoragePath string               `json:"storage_path"`
	PhotoURL    string               `json:"photo_url,omitempty"`
	FlatLayURL  string               `json:"flat_lay_url,omitempty"`
	Status      OutfitStatus         `json:"status"`
	Error       string               `json:"error,omitempty"`
	Items       []ExtractedItem      `json:"items,omitempty"`
	Shopping    []ItemShoppingResult `json:"shopping,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
