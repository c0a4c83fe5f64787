package auth

// LoginRequest is the device fingerprint payload sent by clients. A device
// logs in and registers through the same call.
type LoginRequest struct {
	DeviceID      string `json:"device_id"`
	AppID         string `json:"app_id"`
	DeviceBrand   string `json:"device_brand"`
	DeviceModel   string `json:"device_model"`
	OS            string `json:"os"`
	OSVersion     string `json:"os_version"`
	ClientVersion string `json:"client_version"`
	Carrier       string `json:"carrier,omitempty"`
	FirebaseToken string `json:"firebase_token,omitempty"`
}

type AppUser struct {
	ID               int64   `json:"id"`
	UserID           string  `json:"user_id"`
	DeviceID         string  `json:"device_id"`
	AppID            string  `json:"app_id"`
	DeviceBrand      string  `json:"device_brand"`
	DeviceModel      string  `json:"device_model"`
	OS               string  `json:"os"`
	OSVersion        string  `json:"os_version"`
	ClientVersion    string  `json:"client_version"`
	ClientVersionInt *int64  `json:"client_version_int,omitempty"`
	Carrier          *string `json:"carrier,omitempty"`
	FirebaseToken    *string `json:"firebase_token,omitempty"`
	IP               *string `json:"ip,omitempty"`
	RegisterTime     int64   `json:"register_time"`
	CreateTime       int64   `json:"create_time"`
	LastActiveTime   *int64  `json:"last_active_time,omitempty"`
	IsDeleted        bool    `json:"is_deleted"`
}

type LoginResponse struct {
	Token     string   `json:"token"`
	User      *AppUser `json:"user"`
	ExpiresIn int64    `json:"expires_in"`
}

// validateLoginRequest returns the first failure message naming the missing
// field, or "" when the payload is complete.
func validateLoginRequest(req LoginRequest) string {
	switch {
	case req.DeviceID == "":
		return "device_id is required"
	case req.AppID == "":
		return "app_id is required"
	case req.DeviceBrand == "":
		return "device_brand is required"
	case req.DeviceModel == "":
		return "device_model is required"
	case req.OS == "":
		return "os is required"
	case req.OSVersion == "":
		return "os_version is required"
	case req.ClientVersion == "":
		return "client_version is required"
	default:
		return ""
	}
}
