package domain

// Attribute values that mean "the model could not tell". They are excluded
// from search queries and description assembly.
const (
	AttrUnknown = "unknown"
	AttrVarious = "various"
	AttrSolid   = "solid"
)

// PriceUnavailable is the sentinel for candidates without price data.
const PriceUnavailable = "Price not available"

// Search methods recorded on ItemShoppingResult for observability.
const (
	SearchMethodVisual  = "visual"
	SearchMethodText    = "text_fallback"
	SearchMethodNoImage = "no_image_available"
)

// BoundingBox is a normalized rectangle in [0,1] relative to the source image.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ExtractedItem is one physical clothing or accessory piece detected in a
// flat-lay image. Paired wearables (shoes, earrings, gloves, socks) are a
// single item.
type ExtractedItem struct {
	ID                 string      `json:"id"`
	PieceType          string      `json:"piece_type"`
	Description        string      `json:"description"`
	BoundingBox        BoundingBox `json:"bounding_box"`
	Confidence         float64     `json:"confidence"`
	Color              string      `json:"color,omitempty"`
	Pattern            string      `json:"pattern,omitempty"`
	Style              string      `json:"style,omitempty"`
	ExtractedImageURL  string      `json:"extracted_image_url,omitempty"`
	ExtractedImagePath string      `json:"extracted_image_path,omitempty"`
}

// HasImage reports whether an isolated crop exists for this item. Without
// one, visual search is impossible.
func (i ExtractedItem) HasImage() bool {
	return i.ExtractedImageURL != ""
}

// ProductCandidate is a single shoppable match proposed by one search
// backend for one extracted item.
type ProductCandidate struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Retailer string `json:"retailer"`
	Price    string `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
	Source   string `json:"source"`
}

// Valid reports whether the candidate carries the required fields. Invalid
// candidates are discarded before fusion.
func (c ProductCandidate) Valid() bool {
	return c.Title != "" && c.URL != ""
}

// ItemShoppingResult is the per-item output of the matching pipeline.
type ItemShoppingResult struct {
	ItemID            string             `json:"item_id"`
	PieceType         string             `json:"piece_type"`
	ExtractedImageURL string             `json:"extracted_image_url,omitempty"`
	Candidates        []ProductCandidate `json:"candidates"`
	SearchMethod      string             `json:"search_method"`
	Confidence        float64            `json:"confidence"`
}
