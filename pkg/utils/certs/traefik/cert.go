// Package traefik extracts TLS certificates from a traefik acme.json store.
package traefik

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

type certEntry struct {
	Certificate string `json:"certificate"`
	Key         string `json:"key"`
}

// GetCertFromTraefik loads the certificate for domain from a traefik
// acme.json store. Certificate and key are kept base64 encoded under the
// resolver that issued them.
func GetCertFromTraefik(file, domain string) (tls.Certificate, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("could not read cert store: %w", err)
	}
	return parseCertificate(string(data), domain)
}

func parseCertificate(jsonData, domain string) (tls.Certificate, error) {
	entry, err := findCertEntry(jsonData, domain)
	if err != nil {
		return tls.Certificate{}, err
	}
	certPem, err := base64.StdEncoding.DecodeString(entry.Certificate)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPem, err := base64.StdEncoding.DecodeString(entry.Key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.X509KeyPair(certPem, keyPem)
}

// findCertEntry picks the certificate entry of a domain. The resolver name
// is not known in advance, the path matches on any top level key.
func findCertEntry(jsonData, domain string) (*certEntry, error) {
	obj, err := oj.ParseString(jsonData)
	if err != nil {
		return nil, err
	}
	path, err := jp.ParseString(
		fmt.Sprintf(`$..Certificates[?(@.domain.main == %q)]`, domain))
	if err != nil {
		return nil, err
	}
	res := path.Get(obj)
	if len(res) == 0 {
		return nil, fmt.Errorf("no certificate for domain %s", domain)
	}
	entry := certEntry{}
	if err := oj.Unmarshal([]byte(oj.JSON(res[0])), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
