package qtrade

// auth.go — qtrade HMAC request signing.
//
// Credentials are a "keyID:secret" pair, read from the LPBOT_HMAC_KEY
// environment variable or from a keyfile. Each private request carries
//
//	HMAC-Timestamp: <unix seconds>
//	Authorization:  HMAC-SHA256 <keyID>:<base64 signature>
//
// where the signature covers "METHOD\nURI\ntimestamp\nbody\nsecret".

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvHMACKey is the environment variable checked before the keyfile.
const EnvHMACKey = "LPBOT_HMAC_KEY"

// Auth signs requests with a qtrade HMAC key pair.
type Auth struct {
	keyID  string
	secret string
	now    func() time.Time
}

// NewAuth builds an Auth from a raw "keyID:secret" credential string.
func NewAuth(credential string) (*Auth, error) {
	keyID, secret, ok := strings.Cut(strings.TrimSpace(credential), ":")
	if !ok || keyID == "" || secret == "" {
		return nil, fmt.Errorf("qtrade.NewAuth: credential must be \"keyID:secret\"")
	}
	return &Auth{keyID: keyID, secret: secret, now: time.Now}, nil
}

// LoadAuth reads credentials from LPBOT_HMAC_KEY or, failing that, from
// the keyfile at path.
func LoadAuth(path string) (*Auth, error) {
	if cred := os.Getenv(EnvHMACKey); cred != "" {
		return NewAuth(cred)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("qtrade.LoadAuth: read keyfile: %w", err)
	}
	return NewAuth(string(raw))
}

// KeyID returns the public half of the credential.
func (a *Auth) KeyID() string { return a.keyID }

// Sign adds the HMAC headers to req. body is the raw request body, nil
// for GETs.
func (a *Auth) Sign(req *http.Request, body []byte) {
	timestamp := strconv.FormatInt(a.now().Unix(), 10)

	uri := req.URL.Path
	if req.URL.RawQuery != "" {
		uri += "?" + req.URL.RawQuery
	}

	// qtrade's "HMAC" scheme is a plain SHA256 digest over the request
	// with the secret appended, not a keyed HMAC.
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n%s\n%s", req.Method, uri, timestamp, body, a.secret)
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))

	req.Header.Set("HMAC-Timestamp", timestamp)
	req.Header.Set("Authorization", fmt.Sprintf("HMAC-SHA256 %s:%s", a.keyID, sig))
}
