package auth

import "fmt"

// Caller-facing messages.
const (
	MsgConnectionAuthenticated = "Connection authenticated successfully"
	MsgLoginSuccess            = "Login successful"
	MsgLoginFailed             = "Login failed"
	MsgInvalidPassword         = "You have entered an invalid password"
	MsgResetTokenIssued        = "Reset token generated successfully"
	MsgResetTokenFailed        = "Failed to generate reset token"
	MsgResetTokenInvalid       = "Invalid or expired reset token"
	MsgResetTokenOrIdentity    = "Invalid reset token or username"
	MsgTokenVerified           = "Token verified successfully"
	MsgTokenVerificationFailed = "Token verification failed"
	MsgResetPasswordSuccess    = "Password reset successful"
	MsgResetPasswordFailed     = "Password reset failed"
	MsgSignupSuccess           = "Signup successful"
	MsgSignupFailed            = "Signup failed"
	MsgUnauthorizedOperation   = "You are not authorized to perform this operation"
	MsgNoUserFound             = "No user found with the provided username"
	MsgTooManyAttempts         = "Too many attempts. Please try again later"
	MsgEmailTaken              = "An account with this email already exists"
	MsgIdentificationTaken     = "An account with this identification number already exists"
	MsgContactTaken            = "An account with this contact number already exists"
	MsgUserApproved            = "User approved successfully"
	MsgUserSuspended           = "User suspended successfully"
	MsgUserDeleted             = "User deleted successfully"
	MsgUserAlreadyApproved     = "User is already approved"
	MsgUserAlreadySuspended    = "User is already suspended"
	MsgUserAlreadyDeleted      = "User is already deleted"
	MsgApproveFailed           = "Failed to approve user"
	MsgSuspendFailed           = "Failed to suspend user"
	MsgDeleteFailed            = "Failed to delete user"
)

// SupportContact is appended to messages that ask the user to get in touch.
type SupportContact struct {
	Email string
	Phone string
}

func (c SupportContact) suffix() string {
	return fmt.Sprintf("Please contact %s or %s", c.Email, c.Phone)
}

func (c SupportContact) notApproved() string {
	return "Your Account has not been approved yet. " + c.suffix()
}

func (c SupportContact) suspended() string {
	return "Your Account has been temporarily suspended. " + c.suffix()
}

func (c SupportContact) deleted() string {
	return "Your Account has been blocked. " + c.suffix()
}

func (c SupportContact) multipleUsers() string {
	return "Multiple users found. " + c.suffix()
}

func duplicateMessage(field UniqueField) string {
	switch field {
	case FieldEmail:
		return MsgEmailTaken
	case FieldIdentificationNumber:
		return MsgIdentificationTaken
	default:
		return MsgContactTaken
	}
}
