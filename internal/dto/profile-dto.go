package dto

type UpdateUserProfile struct {
	Name    *string `json:"nama,omitempty" validate:"omitempty,min=3,max=50"`
	Phone   *string `json:"no_hp,omitempty"`
	Address *string `json:"alamat,omitempty"`
}

type AdminRef struct {
	ID   uint   `json:"id"`
	Name string `json:"nama"`
}

type UserProfileResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"nama"`
	Email          string    `json:"email"`
	Phone          *string   `json:"no_hp"`
	Address        *string   `json:"alamat"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	Role           string    `json:"role"`
	IsVerified     bool      `json:"is_verified"`
	ReferralCode   *string   `json:"kode_referensi"`
	ReferringAdmin *AdminRef `json:"admin_referensi"`
	CreatedAt      string    `json:"created_at"`
}

type ResidentSummary struct {
	ID         uint    `json:"id"`
	Name       string  `json:"nama"`
	Email      string  `json:"email"`
	Phone      *string `json:"no_hp"`
	Address    *string `json:"alamat"`
	IsVerified bool    `json:"is_verified"`
	CreatedAt  string  `json:"created_at"`
}
