package registrar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"domainpark/pkg/platform/retry"
)

const (
	cmdCheck   = "namecheap.domains.check"
	cmdPricing = "namecheap.users.getPricing"
	cmdCreate  = "namecheap.domains.create"
)

func checkResponse(domain string, available bool) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="OK" xmlns="http://api.namecheap.com/xml.response">
  <Errors />
  <Warnings />
  <RequestedCommand>namecheap.domains.check</RequestedCommand>
  <CommandResponse Type="namecheap.domains.check">
    <DomainCheckResult Domain="%s" Available="%t" ErrorNo="0" Description="" IsPremiumName="false" />
  </CommandResponse>
</ApiResponse>`, domain, available)
}

func pricingResponse(tld, oneYear string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="OK" xmlns="http://api.namecheap.com/xml.response">
  <Errors />
  <RequestedCommand>namecheap.users.getPricing</RequestedCommand>
  <CommandResponse Type="namecheap.users.getPricing">
    <UserGetPricingResult>
      <ProductType Name="domains">
        <ProductCategory Name="register">
          <Product Name="%s">
            <Price Duration="1" DurationType="YEAR" Price="%s" PricingType="MULTIPLE" RegularPrice="32.98" YourPrice="%s" Currency="USD" />
            <Price Duration="2" DurationType="YEAR" Price="36.96" PricingType="MULTIPLE" RegularPrice="36.96" YourPrice="36.96" Currency="USD" />
          </Product>
        </ProductCategory>
      </ProductType>
    </UserGetPricingResult>
  </CommandResponse>
</ApiResponse>`, tld, oneYear, oneYear)
}

func errorResponse(number, message string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="ERROR" xmlns="http://api.namecheap.com/xml.response">
  <Errors>
    <Error Number="%s">%s</Error>
  </Errors>
  <Warnings />
  <RequestedCommand />
</ApiResponse>`, number, message)
}

func createResponse(domain string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="OK" xmlns="http://api.namecheap.com/xml.response">
  <Errors />
  <Warnings />
  <RequestedCommand>namecheap.domains.create</RequestedCommand>
  <CommandResponse Type="namecheap.domains.create">
    <DomainCreateResult Domain="%s" Registered="true" ChargedAmount="1.68" DomainID="9007" OrderID="196074" TransactionID="380716" WhoisguardEnable="true" NonRealTimeDomain="false" />
  </CommandResponse>
</ApiResponse>`, domain)
}

// fakeRegistrar answers by Command and counts calls per command.
type fakeRegistrar struct {
	mu        sync.Mutex
	responses map[string]string
	status    map[string]int
	calls     map[string]int
	lastQuery map[string]url.Values
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{
		responses: map[string]string{},
		status:    map[string]int{},
		calls:     map[string]int{},
		lastQuery: map[string]url.Values{},
	}
}

func (f *fakeRegistrar) on(command, body string) *fakeRegistrar {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[command] = body
	return f
}

func (f *fakeRegistrar) onStatus(command string, status int) *fakeRegistrar {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[command] = status
	return f
}

func (f *fakeRegistrar) count(command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[command]
}

func (f *fakeRegistrar) query(command string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery[command]
}

func (f *fakeRegistrar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cmd := q.Get("Command")

	f.mu.Lock()
	f.calls[cmd]++
	f.lastQuery[cmd] = q
	body, ok := f.responses[cmd]
	status := f.status[cmd]
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
	}
	if !ok {
		body = errorResponse("1011102", "Unexpected command")
	}
	_, _ = w.Write([]byte(body))
}

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		Jitter:         0.1,
		AttemptTimeout: time.Second,
	}
}

func testContact() Contact {
	return Contact{
		FirstName:     "Ops",
		LastName:      "Team",
		Address1:      "1 Harbour Street",
		City:          "Dublin",
		StateProvince: "Dublin",
		PostalCode:    "D02",
		Country:       "IE",
		Phone:         "+353.15550100",
		Email:         "ops@example.test",
	}
}

func newTestClient(t *testing.T, fake http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	base := []Option{
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithQuotePolicy(fastPolicy()),
		WithRegisterPolicy(fastPolicy()),
		WithVerifyPolicy(fastPolicy().Once()),
	}
	return New(Config{
		BaseURL:  srv.URL + "/xml.response",
		APIUser:  "apiuser",
		APIKey:   "apikey",
		ClientIP: "203.0.113.7",
		Contact:  testContact(),
	}, append(base, opts...)...)
}

// doerFunc adapts a function to gateway.Doer.
type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func timeoutDoer(calls *int) doerFunc {
	return func(req *http.Request) (*http.Response, error) {
		*calls++
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: context.DeadlineExceeded}
	}
}

// cancelOnCreateDoer answers availability checks and cancels the caller's
// context once the create call has gone out.
func cancelOnCreateDoer(cancel context.CancelFunc, creates *int) doerFunc {
	return func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("Command") != cmdCreate {
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader(checkResponse(q.Get("DomainList"), true))),
			}, nil
		}
		*creates++
		cancel()
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: context.Canceled}
	}
}
