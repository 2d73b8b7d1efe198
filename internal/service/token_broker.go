package service

import (
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/config"
	"github.com/EmilynnJ/ccodeseer/internal/hashutil"

	"github.com/golang-jwt/jwt/v5"
)

// RTCRole is a subject's role on a minted RTC channel.
type RTCRole string

const (
	RTCRolePublisher  RTCRole = "publisher"
	RTCRoleSubscriber RTCRole = "subscriber"
)

// RTCToken is what the Token Broker hands back for a realtime-media
// grant: an opaque signed string plus the UID the external service
// will see the caller as (spec.md §4.4).
type RTCToken struct {
	Token     string
	UID       uint32
	Channel   string
	ExpiresAt time.Time
}

// PubSubToken is the broader-scope grant for the realtime pub/sub
// collaborator: one token, not bound to a single channel, good for the
// subject's full session.
type PubSubToken struct {
	Token     string
	ExpiresAt time.Time
}

type rtcClaims struct {
	jwt.RegisteredClaims
	Channel string  `json:"channel"`
	UID     uint32  `json:"uid"`
	Role    RTCRole `json:"role"`
}

type pubsubClaims struct {
	jwt.RegisteredClaims
	Capability map[string][]string `json:"capability"`
}

// TokenBroker is stateless: every call recomputes a signed token from
// process-wide signing material (spec.md §4.4). It never logs either
// secret.
type TokenBroker struct {
	rtcAppID         string
	rtcSigningKey    []byte
	rtcTTL           time.Duration
	pubsubSigningKey []byte
	pubsubTTL        time.Duration
}

func NewTokenBroker(rtc *config.RTCConfig, pubsub *config.PubSubConfig) *TokenBroker {
	return &TokenBroker{
		rtcAppID:         rtc.AppID,
		rtcSigningKey:    []byte(rtc.SigningCertificate),
		rtcTTL:           time.Duration(rtc.TokenTTLHours) * time.Hour,
		pubsubSigningKey: []byte(pubsub.APISecret),
		pubsubTTL:        time.Duration(pubsub.TokenTTLMins) * time.Minute,
	}
}

// IssueRTCToken mints a publisher or subscriber token bound to channel
// for subject, with a stable numeric UID derived from the subject's
// identifier.
func (b *TokenBroker) IssueRTCToken(subjectID, channel string, role RTCRole) (*RTCToken, error) {
	uid := hashutil.UID32(subjectID)
	now := time.Now()
	expiresAt := now.Add(b.rtcTTL)

	claims := rtcClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    b.rtcAppID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Channel: channel,
		UID:     uid,
		Role:    role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.rtcSigningKey)
	if err != nil {
		return nil, err
	}

	return &RTCToken{Token: signed, UID: uid, Channel: channel, ExpiresAt: expiresAt}, nil
}

// IssuePubSubToken mints a full-capability token for subject, matching
// spec.md §4.4's `capability={"*":["subscribe","publish","presence"]}`.
func (b *TokenBroker) IssuePubSubToken(subjectID string) (*PubSubToken, error) {
	now := time.Now()
	expiresAt := now.Add(b.pubsubTTL)

	claims := pubsubClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Capability: map[string][]string{"*": {"subscribe", "publish", "presence"}},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.pubsubSigningKey)
	if err != nil {
		return nil, err
	}

	return &PubSubToken{Token: signed, ExpiresAt: expiresAt}, nil
}
