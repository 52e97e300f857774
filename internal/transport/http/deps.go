package http

import (
	"github.com/auth-sms-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/auth-sms-api/internal/infrastructure/jwt"
	"github.com/auth-sms-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	SessionRepo   *dynamo.SessionRepo
	CodeRepo      *dynamo.CodeRepo
	ChallengeRepo *dynamo.ChallengeRepo
	SMSSender     sns.SMSSender
	JWTProvider   *jwtinfra.Provider
}
