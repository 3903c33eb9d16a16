package objectstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisclient "github.com/lyzr/flowengine/common/redis"
)

// RedisStore backs Put/Get/Delete with plain Redis SET/GET/DEL keyed by
// org and id, following the teacher's RedisCASClient idiom
// (common/clients/redis_cas.go) generalized from a global content hash key
// to a per-organization, per-id key since objects here are tenant data,
// not a shared execution-result cache keyed by content digest.
//
// PresignRead has no blob-storage SDK to delegate to in this corpus, so it
// issues a signed, time-limited token (HMAC-SHA256 over org/id/expiry)
// rather than a real pre-signed URL. A caller presenting the token back to
// the service can be verified without another store round trip.
type RedisStore struct {
	client    *redisclient.Client
	signKey   []byte
}

type redisObjectEnvelope struct {
	MimeType string            `json:"mimeType"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Data     []byte            `json:"data"`
}

// NewRedisStore creates a Redis-backed object store. signKey authenticates
// presigned read tokens; it should be stable across process restarts or
// outstanding presigned URLs stop validating.
func NewRedisStore(client *redisclient.Client, signKey []byte) *RedisStore {
	return &RedisStore{client: client, signKey: signKey}
}

func redisKey(orgID, id string) string {
	return fmt.Sprintf("obj:%s:%s", orgID, id)
}

func (s *RedisStore) Put(ctx context.Context, orgID string, data []byte, mimeType string, metadata map[string]string) (string, error) {
	id := uuid.NewString()
	env := redisObjectEnvelope{MimeType: mimeType, Metadata: metadata, Data: data}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("objectstore: encode: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(orgID, id), string(raw), 0); err != nil {
		return "", fmt.Errorf("objectstore: put: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, orgID, id string) (*Object, error) {
	raw, err := s.client.Get(ctx, redisKey(orgID, id))
	if err != nil {
		return nil, &ErrNotFound{OrgID: orgID, ID: id}
	}
	var env redisObjectEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("objectstore: decode %s/%s: %w", orgID, id, err)
	}
	return &Object{
		ID:       id,
		OrgID:    orgID,
		Data:     env.Data,
		MimeType: env.MimeType,
		Metadata: env.Metadata,
	}, nil
}

func (s *RedisStore) PresignRead(ctx context.Context, orgID, id string, ttl time.Duration) (string, time.Time, error) {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(ttl)
	token := s.sign(orgID, id, expiresAt)
	return token, expiresAt, nil
}

// VerifyToken checks a presigned read token and returns the (orgID, id) it
// authorizes, failing if the signature doesn't match or it has expired.
func (s *RedisStore) VerifyToken(token string) (orgID, id string, err error) {
	var payload struct {
		OrgID     string `json:"o"`
		ID        string `json:"i"`
		ExpiresAt int64  `json:"e"`
		Sig       string `json:"s"`
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("objectstore: malformed token")
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", "", fmt.Errorf("objectstore: malformed token")
	}
	expected := s.mac(payload.OrgID, payload.ID, payload.ExpiresAt)
	if !hmac.Equal([]byte(payload.Sig), []byte(expected)) {
		return "", "", fmt.Errorf("objectstore: invalid token signature")
	}
	if time.Now().Unix() > payload.ExpiresAt {
		return "", "", fmt.Errorf("objectstore: token expired")
	}
	return payload.OrgID, payload.ID, nil
}

func (s *RedisStore) sign(orgID, id string, expiresAt time.Time) string {
	exp := expiresAt.Unix()
	payload := struct {
		OrgID     string `json:"o"`
		ID        string `json:"i"`
		ExpiresAt int64  `json:"e"`
		Sig       string `json:"s"`
	}{OrgID: orgID, ID: id, ExpiresAt: exp, Sig: s.mac(orgID, id, exp)}
	raw, _ := json.Marshal(payload)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func (s *RedisStore) mac(orgID, id string, expiresAt int64) string {
	h := hmac.New(sha256.New, s.signKey)
	fmt.Fprintf(h, "%s:%s:%d", orgID, id, expiresAt)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *RedisStore) Delete(ctx context.Context, orgID, id string) error {
	return s.client.Delete(ctx, redisKey(orgID, id))
}
