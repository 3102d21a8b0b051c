package mailer

import (
	"bytes"
	"strings"
	"text/template"
)

type localizedCopy struct {
	Subject string
	Body    *template.Template
}

var catalog = map[string]localizedCopy{
	"en": {
		Subject: "Confirm your spot on the waitlist",
		Body: template.Must(template.New("en").Parse(
			"Thanks for joining the waitlist!\r\n\r\n" +
				"Confirm your email address by opening this link:\r\n\r\n{{.URL}}\r\n\r\n" +
				"The link expires on {{.ExpiresAt.Format \"2 Jan 2006 15:04 MST\"}}.\r\n" +
				"If you did not sign up, you can ignore this message.\r\n")),
	},
	"de": {
		Subject: "Bestätige deinen Platz auf der Warteliste",
		Body: template.Must(template.New("de").Parse(
			"Danke für deine Anmeldung zur Warteliste!\r\n\r\n" +
				"Bitte bestätige deine E-Mail-Adresse über diesen Link:\r\n\r\n{{.URL}}\r\n\r\n" +
				"Der Link ist gültig bis {{.ExpiresAt.Format \"02.01.2006 15:04 MST\"}}.\r\n" +
				"Falls du dich nicht angemeldet hast, ignoriere diese Nachricht.\r\n")),
	},
}

// render picks the copy for locale, falling back to the base language and
// then to English.
func render(msg Confirmation) (string, string, error) {
	lc, ok := catalog[strings.ToLower(msg.Locale)]
	if !ok {
		base, _, _ := strings.Cut(strings.ToLower(msg.Locale), "-")
		if lc, ok = catalog[base]; !ok {
			lc = catalog["en"]
		}
	}

	var buf bytes.Buffer
	if err := lc.Body.Execute(&buf, msg); err != nil {
		return "", "", err
	}
	return lc.Subject, buf.String(), nil
}
