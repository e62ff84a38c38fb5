package auth

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrTokenTicketMismatch is returned when a valid token targets another ticket.
var ErrTokenTicketMismatch = errors.New("token is not valid for this ticket")

// ReviewTokenManager issues and validates the signed tokens embedded in the
// manager approve/reject links.
type ReviewTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewReviewTokenManager builds a manager. A non-positive TTL defaults to 7
// days, long enough for the approval email to sit in an inbox over a weekend.
func NewReviewTokenManager(secret string, ttlMinutes int) *ReviewTokenManager {
	ttl := time.Duration(ttlMinutes) * time.Minute
	if ttlMinutes <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &ReviewTokenManager{secret: []byte(secret), ttl: ttl}
}

// ReviewClaims scope a token to a single ticket.
type ReviewClaims struct {
	TicketID string `json:"ticket_id"`
	jwt.RegisteredClaims
}

// Generate signs a review token for the ticket.
func (tm *ReviewTokenManager) Generate(ticketID string) (string, error) {
	now := time.Now()
	claims := &ReviewClaims{
		TicketID: ticketID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ticketID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

// Validate parses the token and checks it targets the given ticket.
func (tm *ReviewTokenManager) Validate(tokenStr, ticketID string) error {
	parsed, err := jwt.ParseWithClaims(tokenStr, &ReviewClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := parsed.Claims.(*ReviewClaims)
	if !ok || !parsed.Valid {
		return errors.New("invalid token")
	}
	if claims.TicketID != ticketID {
		return ErrTokenTicketMismatch
	}
	return nil
}

// ReviewLinkBuilder renders the approve/reject URLs for escalation emails.
type ReviewLinkBuilder struct {
	baseURL string
	tokens  *ReviewTokenManager
}

// NewReviewLinkBuilder constructs the builder.
func NewReviewLinkBuilder(baseURL string, tokens *ReviewTokenManager) *ReviewLinkBuilder {
	return &ReviewLinkBuilder{baseURL: baseURL, tokens: tokens}
}

// Links returns the approve and reject URLs for a ticket.
func (b *ReviewLinkBuilder) Links(ticketID string) (approve, reject string, err error) {
	token, err := b.tokens.Generate(ticketID)
	if err != nil {
		return "", "", err
	}
	escaped := url.PathEscape(ticketID)
	query := url.Values{"token": {token}}.Encode()
	approve = fmt.Sprintf("%s/review/%s/approve?%s", b.baseURL, escaped, query)
	reject = fmt.Sprintf("%s/review/%s/reject?%s", b.baseURL, escaped, query)
	return approve, reject, nil
}
