package domain

// MFAEnrollment is handed to the client to provision an authenticator app.
// The secret stays pending until a code generated from it is confirmed.
type MFAEnrollment struct {
	Secret  string `json:"secret"`
	URL     string `json:"otpauth_url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}
