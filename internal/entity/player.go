package entity

const DefaultProfileImg = "/static/img/profiles/p1.png"

type Role string

const (
	RolePlayer    Role = "PLAYER"
	RoleSpectator Role = "SPECTATOR"
)

// Profile is the display identity of an authenticated user.
type Profile struct {
	ID         string `json:"id"`
	Nickname   string `json:"nickname"`
	ProfileImg string `json:"profile_img,omitempty"`
}

// GuestProfile - the identity shown when no stored profile exists.
func GuestProfile(id string) *Profile {
	return &Profile{
		ID:         id,
		Nickname:   "Guest_" + id,
		ProfileImg: DefaultProfileImg,
	}
}

// Record is the persistent win/loss tally of a user.
type Record struct {
	UserID string `json:"user_id"`
	Wins   int64  `json:"wins"`
	Losses int64  `json:"losses"`
}
