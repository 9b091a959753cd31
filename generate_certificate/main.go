// Command generate_certificate produces the PEM material needed to run the
// emulator against a wss:// central system: a self-signed root CA, a client
// certificate signed by it, or a signed certificate for an external CSR.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"
)

const (
	caValidity   = 10 * 365 * 24 * time.Hour
	certValidity = 365 * 24 * time.Hour
	rsaKeyBits   = 4096
)

var subject = pkix.Name{
	Organization: []string{"OCPP Client Emulator"},
	Country:      []string{"US"},
	Locality:     []string{"Testing"},
}

func main() {
	var (
		makeCA   bool
		makeCert bool
		csrFile  string
	)
	flag.BoolVar(&makeCA, "ca", false, "generate a root CA (ca.pem, ca.key)")
	flag.BoolVar(&makeCert, "crt", false, "generate a client certificate signed by ca.pem")
	flag.StringVar(&csrFile, "csrf", "", "sign the given CSR file with ca.pem")
	flag.Parse()

	var err error
	switch {
	case makeCA:
		err = generateCA()
	case makeCert:
		err = generateClientCert()
	case csrFile != "":
		err = signCSRFile(csrFile)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func generateCA() error {
	serial, err := randomSerial()
	if err != nil {
		return err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(caValidity),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return err
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return err
	}

	if err := writePEM("ca.pem", "CERTIFICATE", der); err != nil {
		return err
	}
	return writePEM("ca.key", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))
}

func generateClientCert() error {
	caCert, caKey, err := loadCA()
	if err != nil {
		return err
	}

	serial, err := randomSerial()
	if err != nil {
		return err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      subject,
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(certValidity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}

	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return err
	}
	der, err := x509.CreateCertificate(rand.Reader, template, caCert, &key.PublicKey, caKey)
	if err != nil {
		return err
	}

	if err := writePEM("client_cert.pem", "CERTIFICATE", der); err != nil {
		return err
	}
	return writePEM("client_cert.key", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))
}

func signCSRFile(path string) error {
	caCert, caKey, err := loadCA()
	if err != nil {
		return err
	}

	rawCSR, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	block, _ := pem.Decode(rawCSR)
	if block == nil {
		return errors.New("failed to decode CSR")
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return err
	}
	if err := csr.CheckSignature(); err != nil {
		return err
	}

	serial, err := randomSerial()
	if err != nil {
		return err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      csr.Subject,
		PublicKey:    csr.PublicKey,
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(certValidity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, caCert, csr.PublicKey, caKey)
	if err != nil {
		return err
	}
	return writePEM("signed_client_cert.pem", "CERTIFICATE", der)
}

func loadCA() (*x509.Certificate, *rsa.PrivateKey, error) {
	rawCert, err := os.ReadFile("ca.pem")
	if err != nil {
		return nil, nil, err
	}
	block, _ := pem.Decode(rawCert)
	if block == nil {
		return nil, nil, errors.New("failed to decode ca.pem")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, err
	}

	rawKey, err := os.ReadFile("ca.key")
	if err != nil {
		return nil, nil, err
	}
	block, _ = pem.Decode(rawKey)
	if block == nil {
		return nil, nil, errors.New("failed to decode ca.key")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

func randomSerial() (*big.Int, error) {
	return rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
}

func writePEM(filename, blockType string, der []byte) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return pem.Encode(f, &pem.Block{Type: blockType, Bytes: der})
}
