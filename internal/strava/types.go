package strava

// Activity is the subset of the Strava activity model the dashboard consumes.
type Activity struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	StartDateLocal     string  `json:"start_date_local"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
	Distance           float64 `json:"distance"`
	MovingTime         int     `json:"moving_time"`
}

// tokenResponse is the Strava OAuth token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}
