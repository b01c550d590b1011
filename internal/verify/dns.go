package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TXTResolver looks up the TXT records of a domain.
type TXTResolver interface {
	LookupTXT(ctx context.Context, domain string) ([]string, error)
}

const (
	dnsTypeTXT    = 16
	dnsStatusOK   = 0
	dnsStatusNXDO = 3
)

// DoHResolver resolves TXT records with the DNS-over-HTTPS JSON API (Google and Cloudflare).
// Endpoints are tried in order until one answers.
type DoHResolver struct {
	endpoints []string
	client    *http.Client
}

// NewDoHResolver creates a resolver for endpoints, e.g. https://dns.google/resolve.
func NewDoHResolver(endpoints []string, timeout time.Duration) *DoHResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DoHResolver{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

type dohResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Name string `json:"name"`
		Type int    `json:"type"`
		TTL  int    `json:"TTL"`
		Data string `json:"data"`
	} `json:"Answer"`
}

func (r *DoHResolver) LookupTXT(ctx context.Context, domain string) ([]string, error) {
	if len(r.endpoints) == 0 {
		return nil, fmt.Errorf("no DNS resolvers configured")
	}

	var lastErr error
	for _, endpoint := range r.endpoints {
		records, err := r.query(ctx, endpoint, domain)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("failed to resolve TXT records for %s: %w", domain, lastErr)
}

func (r *DoHResolver) query(ctx context.Context, endpoint, domain string) ([]string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid resolver URL %s: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("name", domain)
	q.Set("type", "TXT")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolver %s returned status %d", u.Host, resp.StatusCode)
	}

	var answer dohResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&answer); err != nil {
		return nil, fmt.Errorf("resolver %s returned an invalid response: %w", u.Host, err)
	}

	switch answer.Status {
	case dnsStatusOK:
	case dnsStatusNXDO:
		return nil, nil
	default:
		return nil, fmt.Errorf("resolver %s returned DNS status %d", u.Host, answer.Status)
	}

	var records []string
	for _, a := range answer.Answer {
		if a.Type == dnsTypeTXT {
			records = append(records, unquoteTXT(a.Data))
		}
	}
	return records, nil
}

// unquoteTXT joins the character strings of a TXT answer: "abc" "def" -> abcdef.
func unquoteTXT(data string) string {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, `"`) {
		return data
	}
	parts := strings.Split(strings.Trim(data, `"`), `" "`)
	return strings.Join(parts, "")
}

// openAttestationRecord parses "openatts key=value key=value" records, separators may be spaces or semicolons.
func openAttestationRecord(record string) (map[string]string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(record), "openatts")
	if !ok {
		return nil, false
	}

	fields := make(map[string]string)
	for _, token := range strings.FieldsFunc(rest, func(r rune) bool { return r == ' ' || r == ';' || r == '\t' }) {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}
		fields[key] = value
	}
	return fields, true
}

// matchesDNSTXT reports whether record is "openatts net=ethereum netId=<chainID> addr=<address>".
func matchesDNSTXT(record, chainID, address string) bool {
	fields, ok := openAttestationRecord(record)
	if !ok {
		return false
	}
	return fields["net"] == "ethereum" && fields["netId"] == chainID && strings.EqualFold(fields["addr"], address)
}

// matchesDNSDID reports whether record is "openatts a=dns-did; p=<key>; v=1.0;".
func matchesDNSDID(record, key string) bool {
	fields, ok := openAttestationRecord(record)
	if !ok {
		return false
	}
	return fields["a"] == "dns-did" && fields["v"] == "1.0" && strings.EqualFold(fields["p"], key)
}
