package models

// Reservation is written by the client app under /reservations/{reservationId}.
type Reservation struct {
	ReservationID string `json:"reservationId,omitempty"`
	OwnerID       string `json:"ownerId"`
	BorrowerID    string `json:"borrowerId"`
	EquipmentID   string `json:"equipmentId"`
}

// User is the profile stored under /users/{userId}.
type User struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Equipment is the listing stored under /equipment/{equipmentId}. Only the
// name is read here; the full value is mirrored into search as-is.
type Equipment struct {
	EquipmentID string `json:"equipmentId"`
	Name        string `json:"name"`
}

// DeviceToken is one push token from a user's notificationTokens node. Keys
// are the child keys it is stored under: the token itself for children shaped
// {token: true}, a push id for children shaped {pushId: token}.
type DeviceToken struct {
	Token string
	Keys  []string
}

// TokenSet is a user's de-duplicated push tokens.
type TokenSet []DeviceToken

// Tokens returns the bare token strings in set order.
func (s TokenSet) Tokens() []string {
	out := make([]string, 0, len(s))
	for _, t := range s {
		out = append(out, t.Token)
	}
	return out
}
