package usecase

import (
	"context"

	"docaccess/internal/domain"
)

// Login signs in with email and password. Credentials are not checked
// against any server; both must be non-empty. The display name is the local
// part of the email.
func (a *App) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return domain.NewDomainError("App.Login", domain.ErrInvalidCredentials, "email and password are required")
	}
	a.signIn(ctx, domain.User{Email: email, Name: domain.DisplayNameFromEmail(email)})
	return nil
}

// Register creates a local account and signs it in.
func (a *App) Register(ctx context.Context, email, name, password string) error {
	if email == "" || name == "" || password == "" {
		return domain.NewDomainError("App.Register", domain.ErrInvalidInput, "email, name and password are required")
	}
	a.signIn(ctx, domain.User{Email: email, Name: name})
	return nil
}

// GuestLogin signs in with the fixed guest identity.
func (a *App) GuestLogin(ctx context.Context) {
	a.signIn(ctx, domain.GuestUser)
}

func (a *App) signIn(ctx context.Context, u domain.User) {
	a.mu.Lock()
	a.session = domain.Session{IsAuthenticated: true, User: &u}
	session := a.sessionLocked()
	a.deps.Store.Encode(ctx, domain.StorageKeyAuth, domain.AuthRecord{User: &u, IsAuthenticated: true})
	a.mu.Unlock()

	a.deps.Logger.Info("signed in", "email", u.Email)
	a.publishSession(ctx, session)
}

// Logout clears the session, the current document and the chat transcript,
// and forgets the stored session. The document history and preferences stay.
func (a *App) Logout(ctx context.Context) {
	a.mu.Lock()
	hadChat := len(a.chat) > 0
	hadCurrent := a.current != nil
	a.session = domain.Session{}
	a.current = nil
	a.chat = nil
	a.deps.Store.Remove(ctx, domain.StorageKeyAuth)
	a.mu.Unlock()

	a.deps.Logger.Info("signed out")
	a.publishSession(ctx, domain.Session{})
	if hadCurrent {
		a.publish(ctx, domain.EventDocumentSelected, domain.DocumentEventPayload{})
	}
	if hadChat {
		a.publish(ctx, domain.EventChatCleared, domain.ChatEventPayload{})
	}
}

// Session returns a snapshot of the authentication state.
func (a *App) Session() domain.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionLocked()
}

// RequireSession returns ErrNotAuthenticated unless someone is signed in.
func (a *App) RequireSession() error {
	if !a.Session().IsAuthenticated {
		return domain.NewDomainError("App.RequireSession", domain.ErrNotAuthenticated, "sign in or continue as guest first")
	}
	return nil
}

func (a *App) sessionLocked() domain.Session {
	if !a.session.IsAuthenticated || a.session.User == nil {
		return domain.Session{}
	}
	u := *a.session.User
	return domain.Session{IsAuthenticated: true, User: &u}
}

func (a *App) publishSession(ctx context.Context, s domain.Session) {
	p := domain.SessionEventPayload{Authenticated: s.IsAuthenticated}
	if s.User != nil {
		p.Email = s.User.Email
	}
	a.publish(ctx, domain.EventSessionChanged, p)
}
