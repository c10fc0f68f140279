package registrar

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"domainpark/internal/gateway"
)

// signal is a named textual marker looked for in a raw response.
type signal struct {
	name  string
	match func(body string) bool
}

func contains(marker string) func(string) bool {
	return func(body string) bool { return strings.Contains(body, marker) }
}

func matches(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}

var (
	// <Error ...> or <Error>, never the <Errors> wrapper.
	errorElementRe   = regexp.MustCompile(`(?i)<Error[\s>]`)
	statusErrorRe    = regexp.MustCompile(`(?i)Status="ERROR"`)
	errorsWrapperRe  = regexp.MustCompile(`(?i)<Errors>`)
	errElementRe     = regexp.MustCompile(`(?i)<Err[\s>]`)
	emptyErrorsRe    = regexp.MustCompile(`(?i)<Errors\s*/>|<Errors>\s*</Errors>`)
	registeredTrueRe = regexp.MustCompile(`(?i)<DomainCreateResult[^>]*Registered="true"`)
	statusOKRe       = regexp.MustCompile(`(?i)Status="OK"`)

	errorTextRe       = regexp.MustCompile(`(?is)<Error(?:\s[^>]*)?>(.*?)</Error>`)
	errTextRe         = regexp.MustCompile(`(?is)<Err(?:\s[^>]*)?>(.*?)</Err>`)
	descriptionTextRe = regexp.MustCompile(`(?is)<Description(?:\s[^>]*)?>(.*?)</Description>`)
	messageTextRe     = regexp.MustCompile(`(?is)<Message(?:\s[^>]*)?>(.*?)</Message>`)

	availabilityRe = regexp.MustCompile(`(?i)<DomainCheckResult[^>]*Available="(true|false)"`)

	ipReasonRe      = regexp.MustCompile(`(?i)\bip\b|whitelist|ip address`)
	balanceReasonRe = regexp.MustCompile(`(?i)balance|funds`)
	domainReasonRe  = regexp.MustCompile(`(?i)domain`)
	genericErrorRe  = regexp.MustCompile(`(?i)error`)
)

// Error markers in priority order. The bare Number= token only appears on
// error entries of the check command.
var (
	errorElementSignal = signal{"error_element", matches(errorElementRe)}
	statusErrorSignal  = signal{"status_error_wrapper", func(body string) bool {
		return statusErrorRe.MatchString(body) && errorsWrapperRe.MatchString(body)
	}}
	errorNumberSignal = signal{"error_number", contains("Number=")}
	errElementSignal  = signal{"err_element", matches(errElementRe)}

	checkErrorSignals  = []signal{errorElementSignal, statusErrorSignal, errorNumberSignal, errElementSignal}
	commonErrorSignals = []signal{errorElementSignal, statusErrorSignal, errElementSignal}
)

// Success markers on the create command, strongest first.
var createSuccessSignals = []signal{
	{"registered_attribute", matches(registeredTrueRe)},
	{"create_command_ok", func(body string) bool {
		return strings.Contains(body, "<RequestedCommand>namecheap.domains.create</RequestedCommand>") && statusOKRe.MatchString(body)
	}},
	{"success_phrase", contains("Domain registration successful")},
	{"status_ok", matches(statusOKRe)},
}

func detect(body string, signals []signal) (string, bool) {
	for _, s := range signals {
		if s.match(body) {
			return s.name, true
		}
	}
	return "", false
}

// errorMessage returns the first non-empty error text, or fallback.
func errorMessage(body, fallback string, patterns ...*regexp.Regexp) string {
	if len(patterns) == 0 {
		patterns = []*regexp.Regexp{errorTextRe, errTextRe, descriptionTextRe, messageTextRe}
	}
	for _, re := range patterns {
		if m := re.FindStringSubmatch(body); m != nil {
			if msg := strings.TrimSpace(m[1]); msg != "" {
				return msg
			}
		}
	}
	return fallback
}

// classify buckets a registrar error message for user messaging.
func classify(msg string) gateway.Reason {
	switch {
	case ipReasonRe.MatchString(msg):
		return gateway.ReasonIPWhitelist
	case balanceReasonRe.MatchString(msg):
		return gateway.ReasonBalance
	case domainReasonRe.MatchString(msg):
		return gateway.ReasonDomain
	default:
		return gateway.ReasonGeneric
	}
}

type availability int

const (
	availabilityUnknown availability = iota
	availabilityTrue
	availabilityFalse
)

func (a availability) String() string {
	switch a {
	case availabilityTrue:
		return "available"
	case availabilityFalse:
		return "unavailable"
	default:
		return "unknown"
	}
}

func parseBool(s string) availability {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return availabilityTrue
	case "false":
		return availabilityFalse
	default:
		return availabilityUnknown
	}
}

// availabilityOf reads the DomainCheckResult for domain. The XML tree is
// preferred; malformed documents fall back to a text match on the first result.
func availabilityOf(body, domain string) availability {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err == nil {
		results := doc.FindElements("//DomainCheckResult")
		for _, el := range results {
			if strings.EqualFold(el.SelectAttrValue("Domain", ""), domain) {
				return parseBool(el.SelectAttrValue("Available", ""))
			}
		}
		if len(results) > 0 {
			return parseBool(results[0].SelectAttrValue("Available", ""))
		}
	}

	if m := availabilityRe.FindStringSubmatch(body); m != nil {
		return parseBool(m[1])
	}
	return availabilityUnknown
}
