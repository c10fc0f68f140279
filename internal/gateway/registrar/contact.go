package registrar

import (
	"net/url"
	"strings"
)

// Contact is the WHOIS profile used for every registration. The same profile
// fills the registrant, tech, admin and billing roles.
type Contact struct {
	FirstName     string
	LastName      string
	Address1      string
	City          string
	StateProvince string
	PostalCode    string
	Country       string
	Phone         string
	Email         string
}

var contactRoles = []string{"Registrant", "Tech", "Admin", "AuxBilling"}

// Missing lists the empty required fields.
func (c Contact) Missing() []string {
	fields := []struct {
		name, value string
	}{
		{"FirstName", c.FirstName},
		{"LastName", c.LastName},
		{"Address1", c.Address1},
		{"City", c.City},
		{"StateProvince", c.StateProvince},
		{"PostalCode", c.PostalCode},
		{"Country", c.Country},
		{"Phone", c.Phone},
		{"EmailAddress", c.Email},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (c Contact) apply(v url.Values) {
	for _, role := range contactRoles {
		v.Set(role+"FirstName", c.FirstName)
		v.Set(role+"LastName", c.LastName)
		v.Set(role+"Address1", c.Address1)
		v.Set(role+"City", c.City)
		v.Set(role+"StateProvince", c.StateProvince)
		v.Set(role+"PostalCode", c.PostalCode)
		v.Set(role+"Country", c.Country)
		v.Set(role+"Phone", c.Phone)
		v.Set(role+"EmailAddress", c.Email)
	}
}
