package config

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURI() string
	GetGoogleAuthURL() string
	GetGoogleTokenURL() string
	GetGoogleRevokeURL() string
	GetGoogleUserInfoURL() string
	GetDriveAPIURL() string
	GetDriveUploadURL() string
	GetDriveFolderID() string
	GetDriveRequestsPerSecond() float64
}

type Google struct{}

var _ GoogleConfig = Google{}

func (Google) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

// GetGoogleClientSecret is only ever read on the server.
func (Google) GetGoogleClientSecret() string {
	return GetEnv("GOOGLE_CLIENT_SECRET", "")
}

func (Google) GetGoogleRedirectURI() string {
	return GetEnv("GOOGLE_REDIRECT_URI", "")
}

func (Google) GetGoogleAuthURL() string {
	return GetEnv("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth")
}

func (Google) GetGoogleTokenURL() string {
	return GetEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token")
}

func (Google) GetGoogleRevokeURL() string {
	return GetEnv("GOOGLE_REVOKE_URL", "https://oauth2.googleapis.com/revoke")
}

func (Google) GetGoogleUserInfoURL() string {
	return GetEnv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v2/userinfo")
}

func (Google) GetDriveAPIURL() string {
	return GetEnv("GOOGLE_DRIVE_API_URL", "https://www.googleapis.com/drive/v3")
}

func (Google) GetDriveUploadURL() string {
	return GetEnv("GOOGLE_DRIVE_UPLOAD_URL", "https://www.googleapis.com/upload/drive/v3")
}

func (Google) GetDriveFolderID() string {
	return GetEnv("GOOGLE_DRIVE_FOLDER_ID", "root")
}

func (Google) GetDriveRequestsPerSecond() float64 {
	return GetEnvFloat("GOOGLE_DRIVE_RPS", 5)
}
