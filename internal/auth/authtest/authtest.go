// Package authtest builds auth.Service instances backed by miniredis for tests.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"recipebox/internal/auth"
)

var (
	keyOnce    sync.Once
	privatePEM []byte
	publicPEM  []byte
	keyErr     error
)

// KeyPair returns a PEM encoded RSA key pair shared by every test in the process.
func KeyPair(t testing.TB) ([]byte, []byte) {
	t.Helper()
	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			keyErr = err
			return
		}
		privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			keyErr = err
			return
		}
		publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	})
	if keyErr != nil {
		t.Fatalf("generate rsa key: %v", keyErr)
	}
	return privatePEM, publicPEM
}

// NewRedis starts a miniredis server that is closed with the test.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// NewService returns a Service with the given TTLs and a miniredis backed denylist.
func NewService(t testing.TB, accessTTL, refreshTTL time.Duration) (*auth.Service, *redis.Client) {
	t.Helper()
	privPEM, pubPEM := KeyPair(t)
	_, client := NewRedis(t)

	svc, err := auth.NewService(privPEM, pubPEM, accessTTL, refreshTTL, auth.NewRedisDenylist(client))
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc, client
}
