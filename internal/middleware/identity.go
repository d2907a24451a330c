package middleware

import "github.com/labstack/echo/v4"

// userID returns the id of the authenticated caller, or "guest" when the
// request carries no session.
func userID(c echo.Context) string {
	if sess := SessionFrom(c); sess != nil && sess.UserID != "" {
		return sess.UserID
	}
	return "guest"
}
