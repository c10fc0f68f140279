package marketplace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"domainpark/internal/gateway"
	"domainpark/internal/listingcache"
)

// Root elements of the documents Sedo answers with.
const (
	rootFault      = "SEDOFAULT"
	rootList       = "SEDOLIST"
	rootDomainList = "SEDODOMAINLIST"
	rootSearch     = "SEDOSEARCH"
)

// Fault is a SEDOFAULT document.
type Fault struct {
	Code    string
	Message string
}

func (f Fault) String() string {
	return fmt.Sprintf("Sedo API Error: %s - %s", f.Code, f.Message)
}

// asError converts a fault into a gateway error. E1201 is an authentication
// failure; every other code is a rejection.
func (f Fault) asError(op string) *gateway.Error {
	if f.Code == FaultAuthentication {
		return gateway.NewError(gateway.CategoryAuthentication, gatewayName, op, f.String(), nil)
	}
	return gateway.Rejected(gatewayName, op, gateway.ReasonGeneric, f.String())
}

// parseRoot reads body and returns its root element and any fault it carries.
func parseRoot(body string) (*etree.Element, *Fault, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return nil, nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("empty document")
	}
	if strings.EqualFold(root.Tag, rootFault) {
		return root, &Fault{Code: text(root, "faultcode"), Message: text(root, "faultstring")}, nil
	}
	return root, nil, nil
}

func isRoot(root *etree.Element, tag string) bool {
	return root != nil && strings.EqualFold(root.Tag, tag)
}

func text(el *etree.Element, child string) string {
	if el == nil {
		return ""
	}
	c := el.SelectElement(child)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

func number(el *etree.Element, child string) float64 {
	f, err := strconv.ParseFloat(text(el, child), 64)
	if err != nil {
		return 0
	}
	return f
}

func integer(el *etree.Element, child string, fallback int) int {
	raw := text(el, child)
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return fallback
}

func currencyOf(item *etree.Element) int {
	if c := integer(item, "currency", 0); c > 0 {
		return c
	}
	return listingcache.CurrencyUSD
}

func items(root *etree.Element) []*etree.Element {
	return root.SelectElements("item")
}

// ownedListing maps a SEDODOMAINLIST item.
func ownedListing(item *etree.Element) Listing {
	return Listing{
		Listing: listingcache.Listing{
			Domain:     strings.ToLower(text(item, "domain")),
			Price:      number(item, "price"),
			Currency:   currencyOf(item),
			ForSale:    integer(item, "forsale", 0),
			FixedPrice: integer(item, "fixedprice", 0),
			SedoListed: true,
		},
		Source: SourceOwned,
	}
}

// marketListing maps a SEDOSEARCH item. Everything in the public inventory is
// for sale; a positive price means a fixed price.
func marketListing(item *etree.Element) Listing {
	price := number(item, "price")
	fixed := 0
	if price > 0 {
		fixed = 1
	}
	return Listing{
		Listing: listingcache.Listing{
			Domain:     strings.ToLower(text(item, "domain")),
			Price:      price,
			Currency:   currencyOf(item),
			ForSale:    1,
			FixedPrice: fixed,
			SedoListed: true,
		},
		Type:   text(item, "type"),
		Rank:   text(item, "rank"),
		URL:    text(item, "url"),
		Source: SourceMarketplace,
	}
}
