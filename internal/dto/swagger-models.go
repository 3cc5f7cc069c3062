package dto

// Envelopes written by the auth handlers. Tests decode responses into these.

type APIError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type APIMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Note    string `json:"note,omitempty"`
}

type APIAuth struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    UserSummary `json:"user"`
	Note    string      `json:"note,omitempty"`
}

type APIProfile struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    UserProfileResponse `json:"data"`
}

type APIReferralCode struct {
	Success      bool   `json:"success"`
	ReferralCode string `json:"kode_referensi"`
}

type APIResidents struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Data    []ResidentSummary `json:"data"`
}
