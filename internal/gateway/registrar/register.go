package registrar

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"domainpark/internal/gateway"
)

type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusPending    RegistrationStatus = "pending"
	StatusFailed     RegistrationStatus = "failed"
)

// RegistrationOutcome is the registrar's verdict on a create call. Failed
// outcomes carry a Reason for messaging.
type RegistrationOutcome struct {
	Domain      string             `json:"domain"`
	Status      RegistrationStatus `json:"status"`
	Nameservers string             `json:"nameservers,omitempty"`
	Message     string             `json:"message,omitempty"`
	Error       string             `json:"error,omitempty"`
	Reason      gateway.Reason     `json:"reason,omitempty"`
	Signal      string             `json:"-"`
}

func failed(domain string, reason gateway.Reason, msg string) *RegistrationOutcome {
	return &RegistrationOutcome{Domain: domain, Status: StatusFailed, Reason: reason, Error: msg}
}

// Register re-checks availability and submits a one-year registration with
// the parking nameservers.
//
// A nil error with a failed outcome is a definite refusal. A CategoryNetwork
// error means the create call may or may not have reached the registrar.
func (c *Client) Register(ctx context.Context, domain string) (outcome *RegistrationOutcome, err error) {
	const op = "register"
	if err := c.ReadyToRegister(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := gateway.StartSpan(ctx, gatewayName, op, attribute.String("domain", domain))
	defer func() {
		label := outcomeLabel(err)
		if err == nil && outcome != nil {
			label = string(outcome.Status)
			span.SetAttributes(attribute.String("registration.status", label))
		}
		c.metrics.ObserveCall(gatewayName, op, label, start)
		gateway.EndSpan(span, err)
	}()

	if refused := c.recheck(ctx, domain); refused != nil {
		return refused, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp, err := c.fetch(ctx, c.registerPolicy, "create", c.createParams(ctx, domain))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return failed(domain, gateway.ReasonGeneric, fmt.Sprintf("Registrar API returned status %d", resp.StatusCode)), nil
	}

	outcome = c.interpretCreate(resp.Body, domain, c.clientIP(ctx))
	c.logger.InfoContext(ctx, "registrar create interpreted",
		"domain", domain,
		"status", outcome.Status,
		"signal", outcome.Signal,
		"reason", outcome.Reason,
	)
	return outcome, nil
}

// ReadyToRegister reports whether a create call could be sent at all: the
// API credentials and every registrant contact field must be set.
func (c *Client) ReadyToRegister() error {
	const op = "register"
	if !c.Configured() {
		return gateway.CredentialsMissing(gatewayName, op)
	}
	if missing := c.cfg.Contact.Missing(); len(missing) > 0 {
		return gateway.NewError(gateway.CategoryCredentialsMissing, gatewayName, op,
			"registrant contact incomplete: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// recheck is the defensive availability check before create. It only refuses
// on an IP error or an explicit Available="false"; anything else continues.
func (c *Client) recheck(ctx context.Context, domain string) *RegistrationOutcome {
	avail, _, err := c.checkAvailability(ctx, domain, c.verifyPolicy, "recheck", commonErrorSignals)
	if err != nil {
		if gateway.ReasonOf(err) == gateway.ReasonIPWhitelist {
			ge, _ := gateway.As(err)
			return failed(domain, gateway.ReasonIPWhitelist, ge.Message)
		}
		c.logger.WarnContext(ctx, "availability re-check inconclusive, continuing with registration",
			"domain", domain,
			"error", err,
		)
		return nil
	}
	if avail == availabilityFalse {
		return failed(domain, gateway.ReasonDomain, "Domain is not available for registration")
	}
	return nil
}

func (c *Client) createParams(ctx context.Context, domain string) url.Values {
	v := c.params(ctx, "namecheap.domains.create")
	v.Set("DomainName", domain)
	v.Set("Years", "1")
	v.Set("AddFreeWhoisguard", "YES")
	v.Set("WGEnabled", "YES")
	v.Set("AutoRenew", "false")
	v.Set("Nameservers", strings.Join(c.cfg.Nameservers, ","))
	v.Set("UseCustomerBalance", "true")
	c.cfg.Contact.apply(v)
	return v
}

// interpretCreate reads a create response. Error markers win over success
// markers; a response matching neither is pending, never failed, unless it
// still mentions an error.
func (c *Client) interpretCreate(body, domain, clientIP string) *RegistrationOutcome {
	if name, found := detect(body, commonErrorSignals); found {
		msg := errorMessage(body, "Unknown error from registrar", errorTextRe, descriptionTextRe, messageTextRe, errTextRe)
		reason := classify(msg)
		switch reason {
		case gateway.ReasonIPWhitelist:
			msg = fmt.Sprintf("IP Address error: %s (IP: %s)", msg, clientIP)
		case gateway.ReasonBalance:
			msg = "Account balance error: " + msg
		}
		out := failed(domain, reason, msg)
		out.Signal = name
		return out
	}

	if name, found := detect(body, createSuccessSignals); found {
		msg := "Domain registered successfully!"
		if name == "status_ok" {
			msg = "Domain registration submitted successfully!"
		}
		return &RegistrationOutcome{
			Domain:      domain,
			Status:      StatusRegistered,
			Nameservers: c.Nameservers(),
			Message:     msg,
			Signal:      name,
		}
	}

	if genericErrorRe.MatchString(emptyErrorsRe.ReplaceAllString(body, "")) {
		out := failed(domain, gateway.ReasonGeneric,
			errorMessage(body, "Registration failed for an unknown reason.", errorTextRe, messageTextRe, descriptionTextRe))
		out.Signal = "error_text"
		return out
	}

	return &RegistrationOutcome{
		Domain:  domain,
		Status:  StatusPending,
		Message: "Registration submitted, check status later.",
		Signal:  "unrecognized",
	}
}
