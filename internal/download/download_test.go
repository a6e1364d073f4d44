package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.bin")
	payload := []byte("jimaku")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	sum := sha256.Sum256(payload)
	require.NoError(t, VerifyFileChecksum(path, hex.EncodeToString(sum[:])))
	require.Error(t, VerifyFileChecksum(path, "deadbeef"))
}

func TestVerifyFileChecksumEmptyExpected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, VerifyFileChecksum(path, ""))
}

func TestDownloadFileWithPinnedChecksum(t *testing.T) {
	t.Parallel()

	payload := []byte("ggml-model-bytes")
	sum := sha256.Sum256(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "models", "ggml-base.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            server.URL,
		Destination:    destination,
		ExpectedSHA256: hex.EncodeToString(sum[:]),
		NoProgress:     true,
	})
	require.NoError(t, err)

	written, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, payload, written)

	_, err = os.Stat(destination + ".part")
	require.True(t, os.IsNotExist(err), "temp file should be cleaned up")
}

func TestDownloadFileChecksumMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("corrupted"))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "ggml-base.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            server.URL,
		Destination:    destination,
		ExpectedSHA256: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Retries:        1,
		NoProgress:     true,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "checksum mismatch")

	_, statErr := os.Stat(destination)
	require.True(t, os.IsNotExist(statErr), "destination must not exist after failed download")
}

func TestDownloadFileRetriesOnServerError(t *testing.T) {
	t.Parallel()

	payload := []byte("eventually-ok")
	sum := sha256.Sum256(payload)

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "model.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            server.URL,
		Destination:    destination,
		ExpectedSHA256: hex.EncodeToString(sum[:]),
		Retries:        3,
		NoProgress:     true,
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDownloadFileRequiresURLAndDestination(t *testing.T) {
	t.Parallel()

	require.Error(t, DownloadFile(context.Background(), Options{Destination: "/tmp/x"}))
	require.Error(t, DownloadFile(context.Background(), Options{URL: "http://example.com"}))
}
