// internal/fritz/session.go
package fritz

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/pbkdf2"

	"github.com/signalnine/fritzlog/internal/config"
)

const (
	loginRoute = "/login_sid.lua?version=2"
	emptySID   = "0000000000000000"
)

var (
	// ErrAuthentication means the device rejected the credentials. Not
	// retryable within a cycle; retrying feeds the firmware's login
	// back-off.
	ErrAuthentication = errors.New("authentication failed")

	// ErrSessionExpired means the device no longer accepts the SID. The
	// caller may acquire a fresh session once and retry the request.
	ErrSessionExpired = errors.New("session expired")

	// ErrProtocol means the device answered with something this client
	// does not understand, usually after a firmware update.
	ErrProtocol = errors.New("unrecognized device response")
)

// Client talks to one FRITZ!Box web management interface.
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	log      zerolog.Logger
}

// NewClient creates a device client from the collector config.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	transport := &http.Transport{}
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		log: log,
	}
}

type sessionInfo struct {
	XMLName   xml.Name `xml:"SessionInfo"`
	SID       string   `xml:"SID"`
	Challenge string   `xml:"Challenge"`
	BlockTime int      `xml:"BlockTime"`
}

// Login performs the challenge-response handshake and returns a session
// ID. Firmware advertising a "2$..." challenge gets the PBKDF2 response,
// anything else the legacy MD5 response. A positive BlockTime (the
// firmware's brute-force back-off) is waited out before submitting.
func (c *Client) Login(ctx context.Context) (string, error) {
	info, err := c.loginState(ctx)
	if err != nil {
		return "", fmt.Errorf("get challenge: %w", err)
	}

	var response string
	if strings.HasPrefix(info.Challenge, "2$") {
		c.log.Debug().Msg("device supports PBKDF2 login")
		response, err = pbkdf2Response(info.Challenge, c.password)
		if err != nil {
			return "", fmt.Errorf("%w: malformed pbkdf2 challenge: %v", ErrProtocol, err)
		}
	} else {
		c.log.Debug().Msg("falling back to MD5 login")
		response = md5Response(info.Challenge, c.password)
	}

	if info.BlockTime > 0 {
		c.log.Warn().Int("seconds", info.BlockTime).Msg("login temporarily blocked by device, waiting")
		select {
		case <-time.After(time.Duration(info.BlockTime) * time.Second):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	sid, err := c.sendResponse(ctx, response)
	if err != nil {
		return "", fmt.Errorf("submit login response: %w", err)
	}
	if sid == emptySID {
		return "", fmt.Errorf("%w: wrong username or password", ErrAuthentication)
	}

	c.log.Debug().Str("username", c.username).Msg("session acquired")
	return sid, nil
}

func (c *Client) loginState(ctx context.Context) (*sessionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+loginRoute, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	info, err := decodeSessionInfo(resp.Body)
	if err != nil {
		return nil, err
	}
	if info.Challenge == "" {
		return nil, fmt.Errorf("%w: missing challenge", ErrProtocol)
	}
	return info, nil
}

func (c *Client) sendResponse(ctx context.Context, challengeResponse string) (string, error) {
	form := url.Values{
		"username": {c.username},
		"response": {challengeResponse},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+loginRoute, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	info, err := decodeSessionInfo(resp.Body)
	if err != nil {
		return "", err
	}
	if info.SID == "" {
		return "", fmt.Errorf("%w: missing SID", ErrProtocol)
	}
	return info.SID, nil
}

func decodeSessionInfo(r io.Reader) (*sessionInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var info sessionInfo
	if err := xml.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return &info, nil
}

// pbkdf2Response computes the two-stage PBKDF2 response for a version-2
// challenge of the form "2$iter1$salt1hex$iter2$salt2hex". The first
// stage uses the device's static salt, the second a per-login salt; the
// response is "salt2hex$hash2hex".
func pbkdf2Response(challenge, password string) (string, error) {
	parts := strings.Split(challenge, "$")
	if len(parts) != 5 {
		return "", fmt.Errorf("expected 5 fields, got %d", len(parts))
	}
	iter1, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("iteration count 1: %v", err)
	}
	salt1, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("salt 1: %v", err)
	}
	iter2, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", fmt.Errorf("iteration count 2: %v", err)
	}
	salt2, err := hex.DecodeString(parts[4])
	if err != nil {
		return "", fmt.Errorf("salt 2: %v", err)
	}

	hash1 := pbkdf2.Key([]byte(password), salt1, iter1, sha256.Size, sha256.New)
	hash2 := pbkdf2.Key(hash1, salt2, iter2, sha256.Size, sha256.New)
	return parts[4] + "$" + hex.EncodeToString(hash2), nil
}

// md5Response computes the legacy response "challenge-md5hex". The hash
// input is "challenge-password" encoded as UTF-16LE, a quirk of the old
// firmware login.
func md5Response(challenge, password string) string {
	codes := utf16.Encode([]rune(challenge + "-" + password))
	buf := make([]byte, 0, len(codes)*2)
	for _, u := range codes {
		buf = append(buf, byte(u), byte(u>>8))
	}
	sum := md5.Sum(buf)
	return challenge + "-" + hex.EncodeToString(sum[:])
}
