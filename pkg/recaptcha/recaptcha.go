package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/tvet-apply/applicants-api/pkg/httpclient"
)

// DefaultVerifyURL is Google's siteverify endpoint
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var (
	// ErrMissingToken means the request carried no captcha token
	ErrMissingToken = errors.New("recaptcha token is missing")
	// ErrRejected means Google did not accept the token
	ErrRejected = errors.New("recaptcha verification failed")
)

// Response represents the response from Google's reCAPTCHA verification API
type Response struct {
	Success     bool     `json:"success"`
	Score       *float64 `json:"score,omitempty"` // v3 only
	Action      string   `json:"action,omitempty"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks captcha tokens attached to public submissions
type Verifier struct {
	secretKey  string
	verifyURL  string
	minScore   float64
	httpClient httpclient.Client
}

// NewVerifier creates a verifier. An empty verifyURL uses DefaultVerifyURL.
func NewVerifier(secretKey, verifyURL string, minScore float64, httpClient httpclient.Client) *Verifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &Verifier{
		secretKey:  secretKey,
		verifyURL:  verifyURL,
		minScore:   minScore,
		httpClient: httpClient,
	}
}

// Verify validates token, optionally bound to the client's IP. Tokens
// rejected by Google, or scored below the threshold, yield ErrRejected.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return ErrMissingToken
	}

	data := url.Values{}
	data.Set("secret", v.secretKey)
	data.Set("response", token)
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	body, err := httpclient.PostForm(ctx, v.httpClient, v.verifyURL, data)
	if err != nil {
		return fmt.Errorf("failed to verify recaptcha: %w", err)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode recaptcha response: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("%w: %v", ErrRejected, result.ErrorCodes)
	}
	if result.Score != nil && *result.Score < v.minScore {
		return fmt.Errorf("%w: score %.2f below %.2f", ErrRejected, *result.Score, v.minScore)
	}

	return nil
}
