// Package types contains the JSON wire shapes of the wellness service.
package types

// CreateUserRequest is the body of POST /create_user.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MetricsRequest is the body of POST /health_metrics/{email}.
type MetricsRequest struct {
	Steps               int     `json:"steps"`
	CaloriesBurntPerDay float64 `json:"calories_burnt_per_day"`
	SleepHrs            float64 `json:"sleep_hrs"`
}

// MessageResponse is returned by create_user and health_metrics POST.
// The service reports some failures in-band through Error with a 200 status.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	User    int64  `json:"user,omitempty"`
}

// MetricRecord is one stored entry as the service serialises it.
type MetricRecord struct {
	ID            string   `json:"id"`
	Steps         int      `json:"steps"`
	Calories      float64  `json:"calories"`
	SleepHours    float64  `json:"sleep_hours"`
	Date          string   `json:"date"`
	WellnessScore *float64 `json:"wellness_score,omitempty"`
}

// HistoryResponse is returned by GET /health_metrics/{email}. Metrics may be
// a single object or an array depending on the service version.
type HistoryResponse struct {
	Metrics any `json:"metrics"`
}

// PredictionResponse is returned by POST /predict-wellness/{model}.
type PredictionResponse struct {
	Pred float64 `json:"pred"`
}

// Field aliases accepted when decoding history entries.
var (
	StepsKeys     = []string{"steps"}
	CaloriesKeys  = []string{"calories_burnt_per_day", "calories"}
	SleepKeys     = []string{"sleep_hrs", "sleep_hours"}
	TimestampKeys = []string{"timestamp", "date"}
	IDKeys        = []string{"id"}
)
