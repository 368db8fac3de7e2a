package auth

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

var secretKey = []byte("secret")

type logEntry struct {
	level string
	msg   string
	args  []interface{}
}

type loggerMock struct {
	mu      sync.Mutex
	entries []logEntry
}

var _ core.Logger = (*loggerMock)(nil)

func (l *loggerMock) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *loggerMock) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *loggerMock) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *loggerMock) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *loggerMock) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *loggerMock) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

func newTestCodec(t *testing.T) (*Codec, *loggerMock) {
	logger := new(loggerMock)
	codec, err := NewCodec(secretKey, 7*24*time.Hour, "Academia", logger)
	require.NoError(t, err)
	return codec, logger
}

// signRaw signs arbitrary claims, bypassing Codec.Encode.
func signRaw(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	ss, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return ss
}

func TestNewCodec_emptySecret(t *testing.T) {
	_, err := NewCodec(nil, time.Hour, "Academia", new(loggerMock))
	assert.Equal(t, errEmptySecret, err)
}

func TestCodec_roundTrip(t *testing.T) {
	codec, _ := newTestCodec(t)

	for i, role := range AllRoles {
		role := role
		uid := int64(40 + i)
		t.Run(string(role), func(t *testing.T) {
			claims := TokenClaims{
				UserID:    &uid,
				Role:      string(role),
				Name:      core.StringPtr("Jane"),
				Email:     core.StringPtr("jane@test.cd"),
				CollegeID: core.Int64Ptr(3),
			}
			if role == RoleAdmin {
				claims.CollegeID = nil
			}
			token, err := codec.Encode(claims)
			require.NoError(t, err)

			p := codec.DecodePrincipal(token)
			require.NotNil(t, p)
			assert.Equal(t, fmt.Sprint(uid), p.ID)
			assert.Equal(t, role, p.Role)
			assert.Equal(t, claims.Name, p.Name)
			assert.Equal(t, claims.Email, p.Email)
			assert.Equal(t, claims.CollegeID, p.TenantID)

			// idempotent
			assert.Equal(t, p, codec.DecodePrincipal(token))
		})
	}
}

func TestCodec_DecodePrincipal_legacyRoleSpellings(t *testing.T) {
	codec, _ := newTestCodec(t)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		raw  string
		want Role
	}{
		{raw: "CollegeAdmin", want: RoleTenantAdmin},
		{raw: "COLLEGE_ADMIN", want: RoleTenantAdmin},
		{raw: "college_admin", want: RoleTenantAdmin},
		{raw: "TEACHER", want: RoleStaff},
		{raw: "student", want: RoleMember},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			token := signRaw(t, jwt.SigningMethodHS256, secretKey, jwt.MapClaims{
				"user_id": 7, "role": tt.raw, "college_id": 1, "exp": exp,
			})
			p := codec.DecodePrincipal(token)
			require.NotNil(t, p)
			assert.Equal(t, tt.want, p.Role)
			assert.Equal(t, "7", p.ID)
			assert.Nil(t, p.Name)
			assert.Nil(t, p.Email)
		})
	}
}

func TestCodec_Decode_failures(t *testing.T) {
	codec, _ := newTestCodec(t)
	exp := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Minute).Unix()

	valid, err := codec.Encode(TokenClaims{UserID: core.Int64Ptr(1), Role: "ADMIN"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "absent", token: "", wantErr: ErrNoSession},
		{name: "garbage", token: "lmaooolol", wantErr: ErrMalformedToken},
		{name: "garbage with dots", token: "a.b.c", wantErr: ErrMalformedToken},
		{name: "truncated", token: valid[:len(valid)/2], wantErr: ErrMalformedToken},
		{
			name:    "tampered signature",
			token:   valid[:strings.LastIndex(valid, ".")+1] + "c2lnbmF0dXJl",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "other secret",
			token:   signRaw(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": 1, "role": "ADMIN", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "other algorithm",
			token:   signRaw(t, jwt.SigningMethodHS512, secretKey, jwt.MapClaims{"user_id": 1, "role": "ADMIN", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "unsigned",
			token:   signRaw(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"user_id": 1, "role": "ADMIN", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired",
			token:   signRaw(t, jwt.SigningMethodHS256, secretKey, jwt.MapClaims{"user_id": 1, "role": "ADMIN", "exp": past}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "no expiry",
			token:   signRaw(t, jwt.SigningMethodHS256, secretKey, jwt.MapClaims{"user_id": 1, "role": "ADMIN"}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "no user_id",
			token:   signRaw(t, jwt.SigningMethodHS256, secretKey, jwt.MapClaims{"role": "ADMIN", "exp": exp}),
			wantErr: ErrMalformedToken,
		},
		{
			name:    "non numeric user_id",
			token:   signRaw(t, jwt.SigningMethodHS256, secretKey, jwt.MapClaims{"user_id": "one", "role": "ADMIN", "exp": exp}),
			wantErr: ErrMalformedToken,
		},
		{
			name:    "unknown role",
			token:   signRaw(t, jwt.SigningMethodHS256, secretKey, jwt.MapClaims{"user_id": 1, "role": "SuperUser", "exp": exp}),
			wantErr: ErrUnmappableRole,
		},
		{
			name:    "no role",
			token:   signRaw(t, jwt.SigningMethodHS256, secretKey, jwt.MapClaims{"user_id": 1, "exp": exp}),
			wantErr: ErrUnmappableRole,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := codec.Decode(tt.token)
			assert.Nil(t, p)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			assert.Nil(t, codec.DecodePrincipal(tt.token))
		})
	}
}

func TestCodec_Encode_expiry(t *testing.T) {
	codec, _ := newTestCodec(t)

	// issued 8 days ago with a 7 days TTL
	codec.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	token, err := codec.Encode(TokenClaims{UserID: core.Int64Ptr(1), Role: "ADMIN"})
	require.NoError(t, err)
	codec.now = time.Now

	_, err = codec.Decode(token)
	assert.Equal(t, ErrInvalidToken, errors.Cause(err))

	_, err = codec.Encode(TokenClaims{Role: "ADMIN"})
	assert.Error(t, err)
}

func TestCodec_DecodePrincipal_logging(t *testing.T) {
	codec, logger := newTestCodec(t)
	exp := time.Now().Add(time.Hour).Unix()

	assert.Nil(t, codec.DecodePrincipal(""))
	assert.Empty(t, logger.entries, "a missing session is not worth logging")

	assert.Nil(t, codec.DecodePrincipal("lmaooolol"))
	assert.Nil(t, codec.DecodePrincipal(signRaw(t, jwt.SigningMethodHS256, secretKey, jwt.MapClaims{
		"user_id": 1, "role": "SuperUser", "exp": exp,
	})))

	require.Len(t, logger.entries, 2)
	assert.Equal(t, "warn", logger.entries[0].level)
	assert.Equal(t, "session token: malformed", logger.entries[0].msg)
	assert.Equal(t, "warn", logger.entries[1].level)
	assert.Equal(t, "session token: unrecognized role", logger.entries[1].msg)
	assert.Contains(t, fmt.Sprint(logger.entries[1].args...), `"SuperUser"`)
}

func TestCodec_concurrentDecode(t *testing.T) {
	codec, _ := newTestCodec(t)
	token, err := codec.Encode(TokenClaims{UserID: core.Int64Ptr(9), Role: "teacher", CollegeID: core.Int64Ptr(2)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p := codec.DecodePrincipal(token); p == nil || p.Role != RoleStaff {
				t.Errorf("DecodePrincipal() = %+v", p)
			}
		}()
	}
	wg.Wait()
}
