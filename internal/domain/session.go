package domain

// AppTokenState tracks the application-level credential.
type AppTokenState string

const (
	AppTokenAbsent  AppTokenState = "absent"
	AppTokenPending AppTokenState = "pending"
	AppTokenPresent AppTokenState = "present"
)

// Profile is the signed-in user's public identity.
type Profile struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"profile_image_url"`
}

// FollowedChannel is a channel the signed-in user follows.
type FollowedChannel struct {
	ID          string `json:"to_id"`
	Login       string `json:"to_login"`
	DisplayName string `json:"to_name"`
}
