package steamauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
)

// RSAKey is the per-attempt public key returned by getrsakey. It rotates on
// every request and is never cached.
type RSAKey struct {
	Modulus   string `json:"publickey_mod"`
	Exponent  string `json:"publickey_exp"`
	Timestamp string `json:"timestamp"`
}

type rsaKeyResponse struct {
	Success bool `json:"success"`
	RSAKey
}

// PublicKey decodes the hex modulus and exponent.
func (k RSAKey) PublicKey() (*rsa.PublicKey, error) {
	n, ok := new(big.Int).SetString(k.Modulus, 16)
	if !ok || n.Sign() <= 0 {
		return nil, badRSA("", "invalid modulus")
	}
	e, ok := new(big.Int).SetString(k.Exponent, 16)
	if !ok || e.Sign() <= 0 || !e.IsInt64() || e.Int64() > int64(^uint32(0)>>1) {
		return nil, badRSA("", "invalid exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// FetchRSAKey asks Steam for the login key of username. success=false is
// reported as ErrBadRSA, a body that is not JSON as ErrUnexpectedResponse.
func (c *Client) FetchRSAKey(ctx context.Context, username string) (RSAKey, error) {
	body, err := c.send(ctx, request{
		method:   http.MethodPost,
		endpoint: "/login/getrsakey",
		form:     map[string]string{"username": username},
	})
	if err != nil {
		return RSAKey{}, err
	}

	var res rsaKeyResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return RSAKey{}, unexpectedResponse("getrsakey", "decode rsa key: %v", err)
	}
	if !res.Success {
		return RSAKey{}, badRSA(username, "getrsakey returned success=false")
	}
	return res.RSAKey, nil
}

// EncryptPassword encrypts password with PKCS#1 v1.5 and base64-encodes it.
func EncryptPassword(password string, key RSAKey) (string, error) {
	pub, err := key.PublicKey()
	if err != nil {
		return "", err
	}
	enc, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(password))
	if err != nil {
		return "", badRSA("", "encrypt password: "+err.Error())
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}
