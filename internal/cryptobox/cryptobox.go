// Package cryptobox encrypts short scalar values into authenticated, URL-safe
// tokens using Fernet.
package cryptobox

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/shopspring/decimal"
)

// ErrAuthentication is returned by Decrypt when a token was tampered with, was
// encrypted under a different key or is not a token at all.
var ErrAuthentication = errors.New("token failed authentication")

// tokens never expire
const noExpiry time.Duration = -1

type Box struct {
	key *fernet.Key
}

// New creates a Box from the encoded key returned by LoadOrCreateKey.
func New(key []byte) (*Box, error) {
	decoded, err := fernet.DecodeKey(strings.TrimSpace(string(key)))
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	return &Box{key: decoded}, nil
}

// Open loads (or creates) the key at path and creates a Box from it.
func Open(path string) (*Box, error) {
	key, err := LoadOrCreateKey(path)
	if err != nil {
		return nil, err
	}
	box, err := New(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return box, nil
}

// Encrypt encrypts the canonical text form of value, a nil value results in a nil
// token. Tokens are not deterministic, encrypting the same value twice yields
// two different tokens.
func (b *Box) Encrypt(value any) (*string, error) {
	text, ok := canonicalText(value)
	if !ok {
		return nil, nil
	}
	token, err := fernet.EncryptAndSign([]byte(text), b.key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	out := string(token)
	return &out, nil
}

// Decrypt returns the canonical text a token was created from, an empty token
// results in nil.
func (b *Box) Decrypt(token string) (*string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	msg := fernet.VerifyAndDecrypt([]byte(token), noExpiry, []*fernet.Key{b.key})
	if msg == nil {
		return nil, ErrAuthentication
	}
	out := string(msg)
	return &out, nil
}

// DecryptDecimal is Decrypt for tokens holding a decimal.
func (b *Box) DecryptDecimal(token string) (*decimal.Decimal, error) {
	text, err := b.Decrypt(token)
	if err != nil || text == nil {
		return nil, err
	}
	value, err := decimal.NewFromString(*text)
	if err != nil {
		return nil, fmt.Errorf("token does not hold a decimal: %w", err)
	}
	return &value, nil
}

// canonicalText returns the text form of a scalar, pointers are followed and a
// nil value (typed or not) has no text form.
func canonicalText(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		if _, ok := value.(fmt.Stringer); !ok {
			return canonicalText(rv.Elem().Interface())
		}
	}

	switch v := value.(type) {
	case string:
		return v, true
	case decimal.Decimal:
		return v.String(), true
	case *decimal.Decimal:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case bool:
		return strconv.FormatBool(v), true
	case fmt.Stringer:
		return v.String(), true
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	}
	return fmt.Sprint(value), true
}
