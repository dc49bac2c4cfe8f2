package middleware

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/homeplace/internal/protocol"
)

// MemberContextKey holds the *protocol.MemberData of the signed-in member.
const MemberContextKey = "member"

// SessionName is the cookie session that carries member identity.
const SessionName = "homeplace-session"

const (
	sessKeyID    = "memberId"
	sessKeyNick  = "memberNick"
	sessKeyImage = "memberImage"
)

// Member requires a member session and stores the member in the context.
// It must run after session.Middleware.
func Member(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		m, ok := MemberFromSession(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "member session required")
		}
		c.Set(MemberContextKey, m)
		return next(c)
	}
}

// MemberFromSession reads the member stored in the session, if any.
func MemberFromSession(c echo.Context) (*protocol.MemberData, bool) {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return nil, false
	}
	id, _ := sess.Values[sessKeyID].(string)
	if id == "" {
		return nil, false
	}
	nick, _ := sess.Values[sessKeyNick].(string)
	image, _ := sess.Values[sessKeyImage].(string)
	return &protocol.MemberData{ID: id, Nick: nick, Image: image}, true
}

// SaveMember writes m into the session cookie.
func SaveMember(c echo.Context, m protocol.MemberData) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values[sessKeyID] = m.ID
	sess.Values[sessKeyNick] = m.Nick
	sess.Values[sessKeyImage] = m.Image
	return sess.Save(c.Request(), c.Response())
}
