package domain

// DefaultListings is the catalogue served when no listings source is configured.
var DefaultListings = []string{
	"Affordable boarding house near university with WiFi.",
	"Luxury apartment close to city center, pet-friendly.",
	"Budget-friendly room for students, near public transport.",
}

type RecommendRequest struct {
	Message string `json:"message"`
}

type Hit struct {
	Position int
	Distance float32
}
