package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Client posts UPnP control actions to a service control URL.
type Client struct {
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Call invokes action on the service behind endpoint and returns the
// out-argument map. A device-reported failure comes back as a *Fault.
func (c *Client) Call(ctx context.Context, endpoint, serviceType, action string, args Args) (map[string]string, error) {
	payload, err := BuildUPnPRequest(serviceType, action, args)
	if err != nil {
		return nil, fmt.Errorf("cannot build %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("cannot build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf(`"%s#%s"`, serviceType, action))

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s call to %s failed: %w", action, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s response: %w", action, err)
	}

	// 500 carries a SOAP fault, anything else non-200 is a transport error.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return nil, fmt.Errorf("%s call to %s returned %s", action, endpoint, resp.Status)
	}

	out, err := ParseUPnPResponse(body)
	if err != nil {
		if f, ok := err.(*Fault); ok {
			log.Debugf("📡 SOAP fault for %s: %v", action, f)
		}
		return nil, err
	}

	log.Debugf("📡 SOAP action %s returned %d arguments", action, len(out))
	return out, nil
}
