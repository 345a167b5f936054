/*
Package authsdk is a Go client for the manage-system authentication
service.

# SDKClient vs Session

SDKClient covers the public endpoints: captcha, login, registration,
email verification, availability checks and health probes. A successful
Login returns a Session, which carries the bearer token for the
authenticated endpoints.

	client := authsdk.NewSDKClient("https://auth.example.com")

	captcha, err := client.GetCaptcha(ctx)
	// show captcha.Image to the user, read their answer

	session, err := client.Login(ctx, captcha.Session, authsdk.LoginRequest{
		Identifier:      "alice",
		Secret:          password,
		ChallengeAnswer: answer,
	})

	me, err := session.Me(ctx)

Tokens are not refreshed. Once a session expires every call fails with
ErrSessionExpired and the user logs in again.

# Administration

Sessions whose role is "admin" can manage accounts and read the
operation log:

	page, err := session.ListUsers(ctx, authsdk.ListUsersParams{Keyword: "ali"})
	_, err = session.UnlockUser(ctx, page.Users[0].ID)

# Errors

Every error response decodes into an *APIError. Compare with the
predefined values using errors.Is:

	_, err := client.Login(ctx, captcha.Session, req)
	var apiErr *authsdk.APIError
	switch {
	case errors.Is(err, authsdk.ErrAccountLocked):
		errors.As(err, &apiErr)
		fmt.Println("locked, retry in", apiErr.RetryAfter)
	case errors.Is(err, authsdk.ErrChallengeMismatch):
		// fetch a new captcha
	}

The server writes its responses with the same APIError values, so the
codes on both sides always agree.
*/
package authsdk
