package sharepoint

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
)

// defaultSTSEndpoint is the online security token service.
const defaultSTSEndpoint = "https://login.microsoftonline.com/extSTS.srf"

// samlEnvelope is the WS-Trust RequestSecurityToken body posted to the
// STS. Placeholders: username, password, site URL.
const samlEnvelope = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"
  xmlns:a="http://www.w3.org/2005/08/addressing"
  xmlns:u="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd">
  <s:Header>
    <a:Action s:mustUnderstand="1">http://schemas.xmlsoap.org/ws/2005/02/trust/RST/Issue</a:Action>
    <a:ReplyTo><a:Address>http://www.w3.org/2005/08/addressing/anonymous</a:Address></a:ReplyTo>
    <a:To s:mustUnderstand="1">https://login.microsoftonline.com/extSTS.srf</a:To>
    <o:Security s:mustUnderstand="1" xmlns:o="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">
      <o:UsernameToken>
        <o:Username>%s</o:Username>
        <o:Password>%s</o:Password>
      </o:UsernameToken>
    </o:Security>
  </s:Header>
  <s:Body>
    <t:RequestSecurityToken xmlns:t="http://schemas.xmlsoap.org/ws/2005/02/trust">
      <wsp:AppliesTo xmlns:wsp="http://schemas.xmlsoap.org/ws/2004/09/policy">
        <a:EndpointReference><a:Address>%s</a:Address></a:EndpointReference>
      </wsp:AppliesTo>
      <t:KeyType>http://schemas.xmlsoap.org/ws/2005/05/identity/NoProofKey</t:KeyType>
      <t:RequestType>http://schemas.xmlsoap.org/ws/2005/02/trust/Issue</t:RequestType>
      <t:TokenType>urn:oasis:names:tc:SAML:1.0:assertion</t:TokenType>
    </t:RequestSecurityToken>
  </s:Body>
</s:Envelope>`

// stsResponse carries the parts of the STS reply we care about.
type stsResponse struct {
	Token string `xml:"Body>RequestSecurityTokenResponse>RequestedSecurityToken>BinarySecurityToken"`
	Fault string `xml:"Body>Fault>Reason>Text"`
}

// stsLogin performs the legacy cookie sign-in: request a binary
// security token from the STS, then post it to the site's sign-in page
// so the rtFa/FedAuth cookies land in the client's jar.
func stsLogin(ctx context.Context, client *http.Client, stsEndpoint, siteURL, username, password string) error {
	envelope := fmt.Sprintf(samlEnvelope,
		xmlEscape(username), xmlEscape(password), xmlEscape(siteURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, stsEndpoint, strings.NewReader(envelope))
	if err != nil {
		return fmt.Errorf("sts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sts response: %w", err)
	}

	var parsed stsResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%w: sts reply: %v", domain.ErrMalformedResponse, err)
	}
	if parsed.Token == "" {
		if parsed.Fault != "" {
			return fmt.Errorf("%w: %s", domain.ErrAuthFailed, parsed.Fault)
		}
		return fmt.Errorf("%w: sts returned no security token", domain.ErrAuthFailed)
	}

	site, err := url.Parse(siteURL)
	if err != nil {
		return fmt.Errorf("parse site URL: %w", err)
	}
	signin := fmt.Sprintf("%s://%s/_forms/default.aspx?wsa=wsignin1.0", site.Scheme, site.Host)

	req, err = http.NewRequestWithContext(ctx, http.MethodPost, signin, strings.NewReader(parsed.Token))
	if err != nil {
		return fmt.Errorf("signin request: %w", err)
	}

	resp, err = client.Do(req)
	if err != nil {
		return fmt.Errorf("signin request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // body drained for connection reuse

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: signin rejected (%d)", domain.ErrAuthFailed, resp.StatusCode)
	}
	return nil
}

func xmlEscape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s)) //nolint:errcheck // strings.Builder cannot fail
	return sb.String()
}
