package portal

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type loginForm struct {
	action    string
	values    url.Values
	userField string
	passField string
}

// parseLoginForm locates the form holding #id_email and keeps its hidden inputs (CSRF token included).
func parseLoginForm(doc *goquery.Document, pageURL *url.URL) (loginForm, error) {
	email := doc.Find("#id_email").First()
	password := doc.Find("#id_password").First()
	if email.Length() == 0 || password.Length() == 0 {
		return loginForm{}, fmt.Errorf("login form not found")
	}

	form := email.Closest("form")
	if form.Length() == 0 {
		return loginForm{}, fmt.Errorf("login form not found")
	}

	action := pageURL
	if raw, ok := form.Attr("action"); ok && strings.TrimSpace(raw) != "" {
		parsed, err := pageURL.Parse(strings.TrimSpace(raw))
		if err != nil {
			return loginForm{}, fmt.Errorf("invalid login form action %q: %w", raw, err)
		}
		action = parsed
	}

	values := url.Values{}
	form.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("name"); ok && name != "" {
			value, _ := s.Attr("value")
			values.Set(name, value)
		}
	})

	return loginForm{
		action:    action.String(),
		values:    values,
		userField: fieldName(email, "email"),
		passField: fieldName(password, "password"),
	}, nil
}

func fieldName(s *goquery.Selection, fallback string) string {
	if name, ok := s.Attr("name"); ok && name != "" {
		return name
	}
	return fallback
}
