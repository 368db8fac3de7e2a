package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// decoding failures; they all mean "no Principal" to callers
	ErrNoSession      = errors.New("no session")
	ErrMalformedToken = errors.New("malformed token")
	ErrUnmappableRole = errors.New("unmappable role")
	ErrInvalidToken   = errors.New("expired or invalid token")

	errEmptySecret = errors.New("empty signing secret")

	signingMethod = jwt.SigningMethodHS256
)

// Codec signs session tokens and decodes them into Principals.
// Verification is local only (HMAC signature and expiry), it never does I/O.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	logger core.Logger
	parser *jwt.Parser
	now    func() time.Time // mockable
}

func NewCodec(secret []byte, ttl time.Duration, issuer string, logger core.Logger) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errEmptySecret
	}
	c := &Codec{
		secret: secret,
		ttl:    ttl,
		issuer: issuer,
		logger: logger,
		now:    time.Now,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// TTL is how long a freshly encoded token stays valid.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Encode signs the claims, stamping their issue and expiry times.
func (c *Codec) Encode(claims TokenClaims) (string, error) {
	if claims.UserID == nil {
		return "", errors.New("missing user_id")
	}
	now := c.now()
	claims.Issuer = c.issuer
	claims.Subject = strconv.FormatInt(*claims.UserID, 10)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))

	ss, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Decode verifies the token and builds its Principal.
// The returned error is one of ErrNoSession, ErrMalformedToken, ErrInvalidToken or ErrUnmappableRole.
func (c *Codec) Decode(token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	var claims TokenClaims
	if _, err := c.parser.ParseWithClaims(token, &claims, c.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, errors.Wrap(ErrMalformedToken, err.Error())
		}
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.UserID == nil {
		return nil, errors.Wrap(ErrMalformedToken, "missing user_id")
	}

	role, ok := MapRole(claims.Role)
	if !ok {
		return nil, errors.Wrapf(ErrUnmappableRole, "%q", claims.Role)
	}

	return &Principal{
		ID:       strconv.FormatInt(*claims.UserID, 10),
		Name:     claims.Name,
		Email:    claims.Email,
		Role:     role,
		TenantID: claims.CollegeID,
	}, nil
}

// DecodePrincipal is Decode for callers that only care whether there is a Principal.
// Failures are logged and absorbed: the result is nil whenever there is no valid session.
func (c *Codec) DecodePrincipal(token string) *Principal {
	p, err := c.Decode(token)
	if err != nil {
		c.logFailure(err)
		return nil
	}
	return p
}

func (c *Codec) keyFunc(*jwt.Token) (interface{}, error) {
	return c.secret, nil
}

func (c *Codec) logFailure(err error) {
	switch errors.Cause(err) {
	case ErrNoSession:
	case ErrMalformedToken:
		c.logger.Warn("session token: malformed", err)
	case ErrUnmappableRole:
		// backend and frontend role names drifted, or the token format is stale
		c.logger.Warn("session token: unrecognized role", err)
	default:
		c.logger.Info("session token: rejected", err)
	}
}
