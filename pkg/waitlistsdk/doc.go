/*
Package waitlistsdk is a client for the waitlist service HTTP API and holds the
wire types shared with the server.

	client := waitlistsdk.NewClient("https://waitlist.example.com")

	err := client.Signup(ctx, waitlistsdk.SignupRequest{
		Email:        "new@test.com",
		Locale:       "en",
		Consent:      true,
		CaptchaToken: captchaToken,
	})

	res, err := client.Confirm(ctx, tokenFromLink)
	switch res.Status {
	case waitlistsdk.ConfirmStatusConfirmed, waitlistsdk.ConfirmStatusAlready:
		// show the success page
	case waitlistsdk.ConfirmStatusExpired:
		// offer a resend
	}

Signup and resend never reveal whether an address is already on the list; both
succeed with 202 for every business outcome.

Error responses are returned as *APIError:

	var apiErr *waitlistsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == waitlistsdk.ErrorCodeRateLimited {
		time.Sleep(time.Duration(apiErr.RetryAfterSeconds) * time.Second)
	}

Admin endpoints need a bearer token with the waitlist:read scope:

	client.AdminToken = token
	stats, err := client.Stats(ctx)
*/
package waitlistsdk
