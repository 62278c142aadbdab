package fulfillment

import "strings"

// DefaultCountry is used when an address has no country set.
const DefaultCountry = "US"

// AddressInput is the storefront's address record as collected at checkout
// and stored on the order. It may be incomplete; NormalizeAddress decides
// whether it can be submitted upstream.
type AddressInput struct {
	FullName  string `json:"fullName"`
	Attention string `json:"attention,omitempty"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country,omitempty"`
}

// UpstreamAddress is the address schema the upstream API accepts.
// NormalizeAddress is the only constructor; every instance is fully
// populated in its required fields.
type UpstreamAddress struct {
	Addressee string `json:"addressee"`
	Attention string `json:"attention,omitempty"`
	Line1     string `json:"address1"`
	Line2     string `json:"address2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

// NormalizeAddress maps an AddressInput onto the upstream address schema.
// Addressee (from the full name), line 1, city, state and zip are required;
// the returned ValidationError enumerates every missing field, not just the
// first. Country falls back to DefaultCountry. Pure, no I/O.
func NormalizeAddress(in AddressInput) (UpstreamAddress, error) {
	missing := make([]string, 0, 5)

	addressee := strings.TrimSpace(in.FullName)
	if addressee == "" {
		missing = append(missing, "fullName")
	}
	line1 := strings.TrimSpace(in.Line1)
	if line1 == "" {
		missing = append(missing, "line1")
	}
	city := strings.TrimSpace(in.City)
	if city == "" {
		missing = append(missing, "city")
	}
	state := strings.TrimSpace(in.State)
	if state == "" {
		missing = append(missing, "state")
	}
	zip := strings.TrimSpace(in.Zip)
	if zip == "" {
		missing = append(missing, "zip")
	}

	if len(missing) > 0 {
		return UpstreamAddress{}, &ValidationError{Fields: missing}
	}

	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = DefaultCountry
	}

	return UpstreamAddress{
		Addressee: addressee,
		Attention: strings.TrimSpace(in.Attention),
		Line1:     line1,
		Line2:     strings.TrimSpace(in.Line2),
		City:      city,
		State:     state,
		Zip:       zip,
		Country:   country,
	}, nil
}
