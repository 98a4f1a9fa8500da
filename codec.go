package respcache

import (
	"bufio"
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Internal metadata fields carried inside the serialized entry. They are
// stripped on decode and never surface in served headers.
const (
	metaMethod         = "X-Respcache-Method"
	metaReceived       = "X-Respcache-Received"
	metaCipherSuite    = "X-Respcache-Cipher-Suite"
	metaPeerPrincipal  = "X-Respcache-Peer-Principal"
	metaLocalPrincipal = "X-Respcache-Local-Principal"
	metaPeerCert       = "X-Respcache-Peer-Cert"
	metaLocalCert      = "X-Respcache-Local-Cert"
)

// EncodeEntry renders an entry in HTTP/1.1 response wire format: status
// line, the header fields in stored order, the internal metadata fields,
// a blank line, then the raw body. The result is what byte-oriented KV
// backends store.
func EncodeEntry(e *Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(e.StatusLine())
	b.WriteString("\r\n")

	writeField := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	e.Header.Range(func(name, value string) bool {
		writeField(name, value)
		return true
	})

	writeField(metaMethod, e.Method)
	writeField(metaReceived, e.ReceivedAt.UTC().Format(time.RFC3339Nano))
	if e.TLS != nil {
		writeField(metaCipherSuite, strconv.FormatUint(uint64(e.TLS.CipherSuite), 10))
		if e.TLS.PeerPrincipal != "" {
			writeField(metaPeerPrincipal, e.TLS.PeerPrincipal)
		}
		if e.TLS.LocalPrincipal != "" {
			writeField(metaLocalPrincipal, e.TLS.LocalPrincipal)
		}
		for _, cert := range e.TLS.PeerCertificates {
			writeField(metaPeerCert, base64.StdEncoding.EncodeToString(cert.Raw))
		}
		for _, cert := range e.TLS.LocalCertificates {
			writeField(metaLocalCert, base64.StdEncoding.EncodeToString(cert.Raw))
		}
	}

	b.WriteString("\r\n")
	b.Write(e.Body)
	return b.Bytes(), nil
}

// DecodeEntry parses bytes produced by EncodeEntry back into an Entry for
// the given URI, preserving header field order.
func DecodeEntry(uri string, data []byte) (*Entry, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	statusLine, err := readWireLine(r)
	if err != nil {
		return nil, fmt.Errorf("respcache: reading status line: %w", err)
	}
	proto, status, ok := strings.Cut(statusLine, " ")
	if !ok {
		return nil, fmt.Errorf("respcache: malformed status line %q", statusLine)
	}
	codeStr, _, _ := strings.Cut(status, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return nil, fmt.Errorf("respcache: malformed status code in %q", statusLine)
	}

	e := &Entry{
		URI:        uri,
		Proto:      proto,
		StatusCode: code,
		Status:     status,
		Header:     NewHeaderMap(statusLine),
	}
	var tlsInfo TLSInfo
	hasTLS := false

	for {
		line, err := readWireLine(r)
		if err != nil {
			return nil, fmt.Errorf("respcache: reading header field: %w", err)
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("respcache: malformed header field %q", line)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		switch name {
		case metaMethod:
			e.Method = value
		case metaReceived:
			t, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				return nil, fmt.Errorf("respcache: malformed receipt time %q", value)
			}
			e.ReceivedAt = t
		case metaCipherSuite:
			suite, err := strconv.ParseUint(value, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("respcache: malformed cipher suite %q", value)
			}
			tlsInfo.CipherSuite = uint16(suite)
			hasTLS = true
		case metaPeerPrincipal:
			tlsInfo.PeerPrincipal = value
			hasTLS = true
		case metaLocalPrincipal:
			tlsInfo.LocalPrincipal = value
			hasTLS = true
		case metaPeerCert, metaLocalCert:
			cert, err := decodeCert(value)
			if err != nil {
				return nil, err
			}
			if name == metaPeerCert {
				tlsInfo.PeerCertificates = append(tlsInfo.PeerCertificates, cert)
			} else {
				tlsInfo.LocalCertificates = append(tlsInfo.LocalCertificates, cert)
			}
			hasTLS = true
		default:
			e.Header.Add(name, value)
		}
	}

	if hasTLS {
		e.TLS = &tlsInfo
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("respcache: reading body: %w", err)
	}
	e.Body = body
	return e, nil
}

func decodeCert(value string) (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("respcache: malformed certificate encoding: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("respcache: parsing stored certificate: %w", err)
	}
	return cert, nil
}

// readWireLine reads one CRLF-terminated line, tolerating a bare LF.
func readWireLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
