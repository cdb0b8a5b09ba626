package hitbtc

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

// streamMessage is the signed {nonce, payload} envelope of the order entry
// channel.
type streamMessage struct {
	Nonce   int64       `json:"nonce"`
	Payload interface{} `json:"payload"`
}

// SignedMessage is the outbound wire frame for the order entry channel.
type SignedMessage struct {
	APIKey    string        `json:"apikey"`
	Signature string        `json:"signature"`
	Message   streamMessage `json:"message"`
}

// SignedRequest describes an authenticated REST call: the path with its
// canonical query attached and the signature to send alongside.
type SignedRequest struct {
	URI       string
	APIKey    string
	Signature string
}

// RequestSigner builds authenticated payloads for the streaming order entry
// channel and for REST polling. The nonce is connection-scoped state owned
// by this instance: strictly increasing, never reused, never shared between
// connections. Seeding from the clock keeps it monotonic across restarts of
// the owning session without persisting anything.
type RequestSigner struct {
	apiKey    string
	apiSecret string

	mu    sync.Mutex
	nonce int64
}

func NewRequestSigner(apiKey, apiSecret string) *RequestSigner {
	return &RequestSigner{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		nonce:     time.Now().UnixMilli(),
	}
}

func (s *RequestSigner) nextNonce() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce++
	return s.nonce
}

// SignStreaming wraps payload in a {nonce, payload} envelope and signs the
// serialized envelope with HMAC-SHA512, base64-encoded.
func (s *RequestSigner) SignStreaming(payload interface{}) (*SignedMessage, error) {
	msg := streamMessage{Nonce: s.nextNonce(), Payload: payload}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, types.TradingError{
			Code:    types.ErrParseFailed,
			Message: "failed to serialize signed envelope",
			Wrapped: err,
		}
	}
	mac := hmac.New(sha512.New, []byte(s.apiSecret))
	mac.Write(raw)
	return &SignedMessage{
		APIKey:    s.apiKey,
		Signature: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		Message:   msg,
	}, nil
}

// SignRest builds the canonical query string including nonce and api key and
// signs uri?query with HMAC-SHA512, lowercase hex. REST signing shares no
// framing with the streaming form. The caller's params are copied, never
// mutated, so a reused map cannot accumulate stale auth entries.
func (s *RequestSigner) SignRest(uri string, params url.Values) *SignedRequest {
	query := url.Values{}
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}
	query.Set("nonce", strconv.FormatInt(s.nextNonce(), 10))
	query.Set("apikey", s.apiKey)
	full := uri + "?" + query.Encode()

	mac := hmac.New(sha512.New, []byte(s.apiSecret))
	mac.Write([]byte(full))
	return &SignedRequest{
		URI:       full,
		APIKey:    s.apiKey,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	}
}
