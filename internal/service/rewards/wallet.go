package rewards

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/xssnick/tonutils-go/address"

	apperrors "loyalty-points-backend/internal/common/errors"
	rplatform "loyalty-points-backend/internal/platform/redis"
)

const (
	payloadKeyPrefix  = "tonproof:payload:"
	defaultPayloadTTL = 5 * time.Minute
)

// ProofVerifier issues single-use TON proof payloads and checks the proofs
// built from them.
type ProofVerifier struct {
	rdb        *rplatform.Client
	domain     string
	payloadTTL time.Duration
	now        func() time.Time
}

func NewProofVerifier(rdb *rplatform.Client, domain string, payloadTTL time.Duration) *ProofVerifier {
	if payloadTTL <= 0 {
		payloadTTL = defaultPayloadTTL
	}
	return &ProofVerifier{rdb: rdb, domain: domain, payloadTTL: payloadTTL, now: time.Now}
}

// GeneratePayload creates a random base64url payload bound to userID.
func (v *ProofVerifier) GeneratePayload(ctx context.Context, userID int64) (string, error) {
	if v.rdb == nil {
		return "", apperrors.New(apperrors.ErrCodeInternal, "Wallet verification is not available")
	}
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to generate payload")
	}
	payload := base64.RawURLEncoding.EncodeToString(buf[:])
	if err := v.rdb.Set(ctx, payloadKeyPrefix+payload, strconv.FormatInt(userID, 10), v.payloadTTL).Err(); err != nil {
		return "", apperrors.NewCacheError("store proof payload", err)
	}
	return payload, nil
}

// VerifyRequest is the TonConnect proof body.
type VerifyRequest struct {
	Address string   `json:"address" binding:"required"`
	Network string   `json:"network"`
	Proof   TonProof `json:"proof" binding:"required"`
}

type TonProof struct {
	Timestamp int64       `json:"timestamp"`
	Domain    ProofDomain `json:"domain"`
	Signature string      `json:"signature"`
	Payload   string      `json:"payload"`
}

type ProofDomain struct {
	LengthBytes int    `json:"lengthBytes"`
	Value       string `json:"value"`
}

// Verify checks domain, freshness and the single-use payload, and returns
// the parsed wallet address. The payload is consumed even when it belongs
// to another user.
func (v *ProofVerifier) Verify(ctx context.Context, userID int64, req *VerifyRequest) (*address.Address, error) {
	if req == nil || req.Address == "" || req.Proof.Payload == "" {
		return nil, apperrors.NewProofInvalidError("missing address or payload")
	}
	if req.Proof.Domain.Value == "" || v.domain == "" || req.Proof.Domain.Value != v.domain {
		return nil, apperrors.NewProofInvalidError("domain mismatch")
	}
	if req.Proof.Timestamp <= 0 {
		return nil, apperrors.NewProofInvalidError("invalid timestamp")
	}
	// Up to twice the payload TTL of skew is tolerated.
	if v.now().Unix()-req.Proof.Timestamp > int64(v.payloadTTL.Seconds())*2 {
		return nil, apperrors.NewProofInvalidError("expired proof")
	}

	addr, err := ParseAddress(req.Address)
	if err != nil {
		return nil, apperrors.NewProofInvalidError("invalid address")
	}

	if v.rdb == nil {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "Wallet verification is not available")
	}
	owner, err := v.rdb.GetDel(ctx, payloadKeyPrefix+req.Proof.Payload).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperrors.NewProofInvalidError("unknown or expired payload")
		}
		return nil, apperrors.NewCacheError("consume proof payload", err)
	}
	if owner != strconv.FormatInt(userID, 10) {
		return nil, apperrors.NewProofInvalidError("payload issued to another user")
	}
	return addr, nil
}

// ParseAddress accepts both the user-friendly and the raw "wc:hex" forms.
func ParseAddress(s string) (*address.Address, error) {
	addr, err := address.ParseAddr(s)
	if err == nil {
		return addr, nil
	}
	return address.ParseRawAddr(s)
}
