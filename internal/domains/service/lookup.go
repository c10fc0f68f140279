package service

import (
	"context"
	"strings"

	"domainpark/internal/gateway/marketplace"
	"domainpark/internal/gateway/registrar"
	dErrors "domainpark/pkg/domain-errors"
)

const maxKeywordLength = 63

// Verify runs the registrar's dual availability check.
func (s *Service) Verify(ctx context.Context, raw string) (*registrar.Verification, error) {
	domain, err := s.normalize(raw)
	if err != nil {
		return nil, err
	}
	v, err := s.registrar.VerifyAvailability(ctx, domain)
	if err != nil {
		return nil, translateGatewayError(err, "verify availability")
	}
	return v, nil
}

// Search merges owned listings with marketplace results for a keyword.
func (s *Service) Search(ctx context.Context, keyword string) (*marketplace.SearchResult, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "search keyword is required")
	}
	if len(keyword) > maxKeywordLength {
		return nil, dErrors.New(dErrors.CodeValidation, "search keyword is too long")
	}
	result, err := s.marketplace.Search(ctx, keyword)
	if err != nil {
		return nil, translateGatewayError(err, "search listings")
	}
	return result, nil
}
