// Package client implements the GophNotes HTTP API client used by the
// interactive shell.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const requestTimeout = 10 * time.Second

func loadCAPool(caPath string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	return caPool, nil
}

// NewTLSClient returns an HTTP client that trusts only the CA in caPath and
// presents no client certificate.
func NewTLSClient(caPath string) (*http.Client, error) {
	caPool, err := loadCAPool(caPath)
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12}}
	return &http.Client{Transport: transport, Timeout: requestTimeout}, nil
}

// LoadClientCertificate returns an HTTP client that authenticates with the
// certificate pair and trusts the CA in caFile.
func LoadClientCertificate(certFile, keyFile, caFile string) (*http.Client, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert/key: %w", err)
	}
	caPool, err := loadCAPool(caFile)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      caPool,
			MinVersion:   tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: requestTimeout}, nil
}

// Register asks the server at baseURL for a certificate for login and writes
// the returned pair to certFile and keyFile.
func Register(ctx context.Context, httpClient *http.Client, baseURL, login, certFile, keyFile string) error {
	b, err := json.Marshal(map[string]string{"login": login})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+apiRegister, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	var certData struct {
		Cert string `json:"cert"`
		Key  string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&certData); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if certData.Cert == "" || certData.Key == "" {
		return errors.New("server returned an empty certificate")
	}
	if err := os.WriteFile(certFile, []byte(certData.Cert), 0o600); err != nil {
		return fmt.Errorf("failed to save %s: %w", certFile, err)
	}
	if err := os.WriteFile(keyFile, []byte(certData.Key), 0o600); err != nil {
		return fmt.Errorf("failed to save %s: %w", keyFile, err)
	}
	return nil
}
