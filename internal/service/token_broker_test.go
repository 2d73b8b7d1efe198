package service

import (
	"testing"

	"github.com/EmilynnJ/ccodeseer/internal/config"
	"github.com/EmilynnJ/ccodeseer/internal/hashutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker() *TokenBroker {
	return NewTokenBroker(
		&config.RTCConfig{AppID: "app-1", SigningCertificate: "rtc-secret", TokenTTLHours: 24},
		&config.PubSubConfig{APIKey: "key-1", APISecret: "pubsub-secret", TokenTTLMins: 60},
	)
}

func TestIssueRTCTokenBindsChannelAndUID(t *testing.T) {
	broker := newTestBroker()

	token, err := broker.IssueRTCToken("client-42", "rtc-session-1", RTCRolePublisher)
	require.NoError(t, err)
	assert.Equal(t, "rtc-session-1", token.Channel)
	assert.Equal(t, hashutil.UID32("client-42"), token.UID)
	assert.NotEmpty(t, token.Token)

	claims := &rtcClaims{}
	_, err = jwt.ParseWithClaims(token.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("rtc-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "client-42", claims.Subject)
	assert.Equal(t, "rtc-session-1", claims.Channel)
	assert.Equal(t, RTCRolePublisher, claims.Role)
}

func TestIssueRTCTokenDeterministicUIDAcrossCalls(t *testing.T) {
	broker := newTestBroker()

	first, err := broker.IssueRTCToken("client-42", "channel-a", RTCRolePublisher)
	require.NoError(t, err)
	second, err := broker.IssueRTCToken("client-42", "channel-b", RTCRoleSubscriber)
	require.NoError(t, err)

	assert.Equal(t, first.UID, second.UID)
}

func TestIssuePubSubTokenGrantsFullCapability(t *testing.T) {
	broker := newTestBroker()

	token, err := broker.IssuePubSubToken("reader-7")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)

	claims := &pubsubClaims{}
	_, err = jwt.ParseWithClaims(token.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("pubsub-secret"), nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"subscribe", "publish", "presence"}, claims.Capability["*"])
}

func TestTokensFromDifferentBrokersDoNotVerifyAcrossSecrets(t *testing.T) {
	broker := newTestBroker()
	token, err := broker.IssueRTCToken("client-1", "channel", RTCRolePublisher)
	require.NoError(t, err)

	claims := &rtcClaims{}
	_, err = jwt.ParseWithClaims(token.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	assert.Error(t, err)
}
