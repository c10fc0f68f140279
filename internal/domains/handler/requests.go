package handler

import (
	"strings"

	"domainpark/internal/domains/models"
	audit "domainpark/pkg/platform/audit"
	dErrors "domainpark/pkg/domain-errors"
)

// maxDomainInput bounds raw input before normalization, which also strips a
// scheme and path.
const maxDomainInput = 512

// DomainRequest is the body of the quote, register and verify endpoints.
// Normalization and TLD checks happen in the service.
type DomainRequest struct {
	Domain string `json:"domain"`
}

// Validate implements httputil.Validatable.
func (r *DomainRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Domain) > maxDomainInput {
		return dErrors.New(dErrors.CodeValidation, "domain is too long")
	}
	r.Domain = strings.TrimSpace(r.Domain)
	if r.Domain == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	return nil
}

// DomainsResponse wraps record collections.
type DomainsResponse struct {
	Domains []models.RecordView `json:"domains"`
}

type ActivityResponse struct {
	Events []audit.Event `json:"events"`
}
