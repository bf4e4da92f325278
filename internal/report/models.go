package report

// Report is one driving session. Coordinates are pointers so that an
// absent field can be told apart from 0.0.
type Report struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	StartLat   *float64  `json:"start_lat"`
	StartLng   *float64  `json:"start_lng"`
	EndLat     *float64  `json:"end_lat"`
	EndLng     *float64  `json:"end_lng"`
	CreatedAt  int64     `json:"created_at"`
	DistanceKm float64   `json:"distance_km"`
	Warnings   []Warning `json:"warnings"`
}

// Warning is a lane-departure event recorded during a session.
type Warning struct {
	ID        int64    `json:"id"`
	ReportID  int64    `json:"report_id"`
	Text      string   `json:"text"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	CreatedAt int64    `json:"created_at"`
}

// Coord returns a pointer to v, for building reports in code.
func Coord(v float64) *float64 {
	return &v
}
