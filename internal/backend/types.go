package backend

// QRVerifyRequest is the body of POST /auth/qr/verify.
type QRVerifyRequest struct {
	Token string `json:"token"`
}

// QRVerifyResponse carries the identity bound to an accepted token.
type QRVerifyResponse struct {
	Message string `json:"message"`
	User    string `json:"user"`
}

// FaceVerifyRequest is the body of POST /auth/face/verify.
type FaceVerifyRequest struct {
	Email string `json:"email"`
	Image string `json:"image"` // base64 data URL
}

// FaceVerifyResponse is the backend's face match decision.
type FaceVerifyResponse struct {
	Success    *bool    `json:"success"`
	Similarity *float64 `json:"similarity"`
	Message    string   `json:"message,omitempty"`
}

// Granted reports whether the backend accepted the face.
func (r *FaceVerifyResponse) Granted() bool {
	return r.Success != nil && *r.Success
}

// AuditLog is one row of the backend's persistent access log.
type AuditLog struct {
	ID            int    `json:"id"`
	UserID        int    `json:"user_id"`
	AccessGranted bool   `json:"access_granted"`
	ErrorLog      string `json:"error_log"`
	Time          string `json:"time"`
}

// LogPage is a page of GET /logs/.
type LogPage struct {
	Logs  []AuditLog `json:"logs"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Pages int        `json:"pages"`
}

// LogStats is the response of GET /logs/stats.
type LogStats struct {
	TotalAttempts      int        `json:"total_attempts"`
	SuccessfulAttempts int        `json:"successful_attempts"`
	FailedAttempts     int        `json:"failed_attempts"`
	SuccessRate        float64    `json:"success_rate"`
	UniqueUsers        int        `json:"unique_users"`
	BiometricAttempts  int        `json:"biometric_attempts"`
	RecentActivity     []AuditLog `json:"recent_activity"`
}
