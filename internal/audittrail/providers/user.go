// Package providers holds the built-in audit event providers.
package providers

import (
	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/registry"
)

const (
	UserProviderName = "user"
	UserCategory     = "User"
)

// User account events.
const (
	UserSignedUp          = "SignedUp"
	UserLoggedIn          = "LoggedIn"
	UserLogInFailed       = "LogInFailed"
	UserPasswordReset     = "PasswordReset"
	UserPasswordRecovered = "PasswordRecovered"
	UserEnabled           = "Enabled"
	UserDisabled          = "Disabled"
	UserCreated           = "Created"
)

// User declares account lifecycle and sign-in events. All are recorded
// unless turned off in settings.
type User struct{}

func NewUser() *User { return &User{} }

func (*User) Name() string { return UserProviderName }

func (p *User) Describe(dc *registry.DescribeContext) error {
	on := registry.EnabledByDefault()
	dc.For(p, UserCategory, "User").
		Event(UserSignedUp, "Signed up", "A user was successfully signed up.", buildUserEvent, on).
		Event(UserLoggedIn, "Logged in", "A user was successfully logged in.", buildUserEvent, on).
		Event(UserLogInFailed, "Login failed", "An attempt to login failed due to incorrect credentials.", buildUserEvent, on).
		Event(UserPasswordReset, "Password reset", "A user successfully reset the password.", buildUserEvent, on).
		Event(UserPasswordRecovered, "Password recovered", "A user successfully recovered the password.", buildUserEvent, on).
		Event(UserEnabled, "Enabled", "A user was enabled.", buildUserEvent, on).
		Event(UserDisabled, "Disabled", "A user was disabled.", buildUserEvent, on).
		Event(UserCreated, "Created", "A user was created.", buildUserEvent, on)
	return nil
}

// buildUserEvent stores the submitted data under the event name.
func buildUserEvent(event *models.AuditEvent, data map[string]any) {
	event.Put(event.EventName, data)
}
