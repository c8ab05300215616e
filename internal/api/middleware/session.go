package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/Conceptual-Machines/prompt-architect/internal/logger"
)

const (
	// SessionCookie is the name of the cookie carrying the session id
	SessionCookie = "prompt_architect"
	sessionIDKey  = "id"
	sessionMaxAge = 30 * 24 * 60 * 60
)

// NewSessionStore creates the signed cookie store for anonymous sessions
func NewSessionStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Session resolves the visitor's anonymous session id, issuing a new one
// when the cookie is missing or cannot be verified
func Session(store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request, SessionCookie)
		if err != nil {
			// a stale or tampered cookie still yields a fresh session
			logger.Debug("Discarding unreadable session cookie", logger.Fields{"error": err.Error()})
		}

		id, _ := sess.Values[sessionIDKey].(string)
		if _, perr := uuid.Parse(id); perr != nil {
			id = uuid.New().String()
			sess.Values[sessionIDKey] = id
			if err := sess.Save(c.Request, c.Writer); err != nil {
				logger.Error("Failed to save session", err, logger.WithContext(c))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		}

		c.Set("session_id", id)
		c.Next()
	}
}

// SessionID returns the id stored by Session
func SessionID(c *gin.Context) string {
	return c.GetString("session_id")
}
