package domain

type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

func (u User) IsZero() bool {
	return u.ID == "" && u.Username == ""
}

type Product struct {
	ID       ID      `json:"id"`
	Title    string  `json:"title"`
	Price    Decimal `json:"price,omitempty"`
	Image    string  `json:"image,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
}

// Thumbnail returns the uploaded image, falling back to the external image URL.
func (p Product) Thumbnail() string {
	if p.Image != "" {
		return p.Image
	}
	return p.ImageURL
}
