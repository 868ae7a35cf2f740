package middleware

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/gatherly/backend/internal/models"
)

// IDTokenVerifier is satisfied by *auth.Client.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseUsers resolves a Firebase UID to the local account.
type FirebaseUsers interface {
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

// FirebaseAuthenticator accepts Firebase ID tokens whose UID is linked to a
// local account through the firebase-login flow.
func FirebaseAuthenticator(verifier IDTokenVerifier, users FirebaseUsers) Authenticator {
	return func(ctx context.Context, idToken string) (uint, error) {
		token, err := verifier.VerifyIDToken(ctx, idToken)
		if err != nil {
			return 0, fmt.Errorf("verify firebase token: %w", err)
		}
		user, err := users.GetUserByFirebaseUID(ctx, token.UID)
		if err != nil {
			return 0, err
		}
		return user.ID, nil
	}
}
