package auth

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/luma/lodestone/codec"
)

const DefaultSessionServer = "https://sessionserver.mojang.com/session/minecraft/hasJoined"

// maxProfileSize bounds the session server response we are willing to read.
const maxProfileSize = 64 << 10

var (
	// ErrNotVerified is returned when the session server does not know of
	// the join, usually because the client did not authenticate.
	ErrNotVerified = errors.New("failed to verify username")

	ErrBadProfile = errors.New("malformed profile")
)

type Property struct {
	Name      string
	Value     string
	Signature string
}

// Profile is an authenticated player identity.
type Profile struct {
	UUID       codec.UUID
	Name       string
	Properties []Property
}

// Authenticator decides whether a player that completed the encryption
// exchange may join. serverHash is the digest computed by ServerHash.
type Authenticator interface {
	Authenticate(ctx context.Context, name, serverHash string) (Profile, error)
}

// SessionServer verifies joins against a hasJoined style HTTP endpoint.
type SessionServer struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// NewSessionServer builds an authenticator for endpoint. A nil client uses
// one with a ten second timeout.
func NewSessionServer(endpoint string, client *http.Client, log *zap.Logger) *SessionServer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &SessionServer{
		url:    endpoint,
		client: client,
		log:    log,
	}
}

func (s *SessionServer) Authenticate(ctx context.Context, name, serverHash string) (Profile, error) {
	q := url.Values{}
	q.Set("username", name)
	q.Set("serverId", serverHash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"?"+q.Encode(), nil)
	if err != nil {
		return Profile{}, fmt.Errorf("building session request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("querying session server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return Profile{}, ErrNotVerified
	default:
		return Profile{}, fmt.Errorf("session server returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileSize))
	if err != nil {
		return Profile{}, fmt.Errorf("reading session response: %w", err)
	}

	profile, err := ParseProfile(body)
	if err != nil {
		return Profile{}, err
	}

	s.log.Debug("Session verified",
		zap.String("name", profile.Name),
		zap.Stringer("uuid", profile.UUID))

	return profile, nil
}

// ParseProfile reads a session server profile document:
// {"id": "<hex>", "name": "...", "properties": [{"name", "value", "signature"}]}.
func ParseProfile(body []byte) (Profile, error) {
	if len(body) == 0 {
		return Profile{}, ErrNotVerified
	}

	if !gjson.ValidBytes(body) {
		return Profile{}, fmt.Errorf("%w: invalid json", ErrBadProfile)
	}

	doc := gjson.ParseBytes(body)

	id := doc.Get("id").String()
	name := doc.Get("name").String()
	if id == "" || name == "" {
		return Profile{}, ErrNotVerified
	}

	uuid, err := codec.ParseUUID(id)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: id %q", ErrBadProfile, id)
	}

	p := Profile{UUID: uuid, Name: name}

	doc.Get("properties").ForEach(func(_, prop gjson.Result) bool {
		p.Properties = append(p.Properties, Property{
			Name:      prop.Get("name").String(),
			Value:     prop.Get("value").String(),
			Signature: prop.Get("signature").String(),
		})
		return true
	})

	return p, nil
}

// Offline accepts everyone and derives a stable id from the name.
type Offline struct{}

func (Offline) Authenticate(_ context.Context, name, _ string) (Profile, error) {
	return OfflineProfile(name), nil
}

func OfflineProfile(name string) Profile {
	return Profile{UUID: OfflineUUID(name), Name: name}
}

// OfflineUUID is the name based (version 3) UUID of "OfflinePlayer:<name>",
// matching what vanilla servers assign in offline mode.
func OfflineUUID(name string) codec.UUID {
	id := codec.UUID(md5.Sum([]byte("OfflinePlayer:" + name)))
	id[6] = id[6]&0x0f | 0x30
	id[8] = id[8]&0x3f | 0x80
	return id
}
