package auth

// Failure codes we know how to explain to a user. Most come from the identity
// provider; the last two are raised by this service's own guards.
const (
	CodeInvalidCredential = "invalid-credential"
	CodeUserNotFound      = "user-not-found"
	CodeWrongPassword     = "wrong-password"
	CodeInvalidEmail      = "invalid-email"
	CodeUserDisabled      = "user-disabled"
	CodeTooManyRequests   = "too-many-requests"
	CodeNotSignedIn       = "not-signed-in"
	CodePermissionDenied  = "permission-denied"
)

var friendlyMessages = map[string]string{
	CodeInvalidCredential: "Invalid credentials. Please check your email and password.",
	CodeUserNotFound:      "No account found for this email.",
	CodeWrongPassword:     "Incorrect password. Please try again.",
	CodeInvalidEmail:      "The email address is badly formatted.",
	CodeUserDisabled:      "This account has been disabled. Contact support for help.",
	CodeTooManyRequests:   "Too many attempts. Please wait a moment and try again.",
	CodeNotSignedIn:       "You are not signed in. Please log in first.",
	CodePermissionDenied:  "Access denied. Please log out and log back in.",
}

// FriendlyMessage maps a provider failure code to a human-readable message,
// with a generic fallback for codes we do not recognize.
func FriendlyMessage(code string) string {
	if msg, ok := friendlyMessages[code]; ok {
		return msg
	}
	return "Something went wrong signing you in. Please try again."
}
