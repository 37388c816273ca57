package models

import "time"

// HomeSettings is the singleton record rendered on the landing page.
type HomeSettings struct {
	Title       string    `db:"title" json:"title"`
	Subtitle    string    `db:"subtitle" json:"subtitle"`
	BannerImage string    `db:"banner_image" json:"banner_image"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HomeSettingsUpdate is the request body for replacing the home settings.
// An empty banner clears the current image.
type HomeSettingsUpdate struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	BannerImage MediaRef `json:"banner_image"`
}

// DefaultHomeSettings returns the settings shown before an admin saves any.
func DefaultHomeSettings() HomeSettings {
	return HomeSettings{
		Title:    "ShareHub",
		Subtitle: "あなたにぴったりの制作物を見つけよう",
	}
}
