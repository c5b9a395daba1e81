package model

// UserProfile is what the user directory knows about a user
type UserProfile struct {
	ID           string `json:"id" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	StageName    string `json:"stageName,omitempty" bson:"stageName,omitempty"`
	IsDJEntitled bool   `json:"isDjEntitled" bson:"isDjEntitled"`
}

// CosmeticKind is the slot a cosmetic item occupies
type CosmeticKind string

const (
	CosmeticAvatar     CosmeticKind = "avatar"
	CosmeticMicrophone CosmeticKind = "mic"
)

// Cosmetic is display metadata for an avatar or microphone
type Cosmetic struct {
	ID       string       `json:"id"`
	Kind     CosmeticKind `json:"kind"`
	Name     string       `json:"name,omitempty"`
	ImageURL string       `json:"imageUrl,omitempty"`
	Rarity   string       `json:"rarity,omitempty"`
}
