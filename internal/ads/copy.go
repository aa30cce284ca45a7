package ads

import (
	"fmt"
	"strings"

	"salesradar/internal/model"
)

const defaultProductImage = "https://example.com/images/default-product.jpg"

// productImages is the static product -> creative image lookup.
var productImages = map[string]string{
	"Smartphone X1":       "https://example.com/images/smartphone-x1.jpg",
	"Wireless Earbuds Pro": "https://example.com/images/earbuds-pro.jpg",
	"Gaming Laptop Z5":    "https://example.com/images/laptop-z5.jpg",
}

// topicInterests maps topic substrings to ad-platform interest ids.
var topicInterests = map[string]string{
	"smartphones": "6003015842842",
	"earbuds":     "6003139266461",
	"audio":       "6003139266461",
	"laptops":     "6002970401671",
	"gaming":      "6003010455011",
	"electronics": "6002964301001",
}

// productInterests maps exact product names to interest ids.
var productInterests = map[string]string{
	"Smartphone X1":       "6003015842842",
	"Wireless Earbuds Pro": "6003139266461",
	"Gaming Laptop Z5":    "6002970401671",
}

// Headline derives ad copy from the verdict. Three tiers, evaluated in
// order: problem-framed for high urgency, product-framed when a
// relevant product exists, then the fixed fallback.
func Headline(v model.IntentVerdict) string {
	if v.Urgency == model.UrgencyHigh {
		topic := "Tech"
		if len(v.Topics) > 0 && v.Topics[0] != "" {
			topic = v.Topics[0]
		}
		return fmt.Sprintf("Solve Your %s Problem Today!", topic)
	}
	if len(v.RelevantProducts) > 0 && v.RelevantProducts[0] != "" {
		return fmt.Sprintf("Discover the Perfect %s", v.RelevantProducts[0])
	}
	return "The Solution You've Been Looking For"
}

// Body references the first topic and, if present, the first relevant
// product.
func Body(v model.IntentVerdict) string {
	topic := "your device"
	if len(v.Topics) > 0 && v.Topics[0] != "" {
		topic = v.Topics[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "We noticed you're having an issue with %s. ", topic)
	if len(v.RelevantProducts) > 0 && v.RelevantProducts[0] != "" {
		fmt.Fprintf(&b, "Our %s is designed to solve exactly this problem. ", v.RelevantProducts[0])
	}
	b.WriteString("Check out our solutions that have helped thousands of customers like you!")
	return b.String()
}

// ProductImage resolves the creative image, with a default fallback
// for unknown products.
func ProductImage(product string) string {
	if u, ok := productImages[product]; ok {
		return u
	}
	return defaultProductImage
}

// Interest is one targeting interest entry.
type Interest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func topicsToInterests(topics []string) []Interest {
	var out []Interest
	for _, topic := range topics {
		lower := strings.ToLower(topic)
		for key, id := range topicInterests {
			if strings.Contains(lower, key) {
				out = append(out, Interest{ID: id, Name: key})
				break
			}
		}
	}
	return out
}

func productsToInterests(products []string) []Interest {
	var out []Interest
	for _, p := range products {
		if id, ok := productInterests[p]; ok {
			out = append(out, Interest{ID: id, Name: p})
		}
	}
	return out
}

// Targeting is the fixed-shape audience spec attached to every ad set.
type Targeting struct {
	AgeMin       int             `json:"age_min"`
	AgeMax       int             `json:"age_max"`
	Genders      []int           `json:"genders"`
	GeoLocations map[string]any  `json:"geo_locations"`
	Interests    []Interest      `json:"interests"`
	FlexibleSpec []flexibleEntry `json:"flexible_spec"`
}

type flexibleEntry struct {
	Interests []Interest `json:"interests"`
}

// BuildTargeting assembles targeting from the two static keyword maps,
// the fixed 18-65 age range and the configured geography.
func BuildTargeting(v model.IntentVerdict, countries []string) Targeting {
	if len(countries) == 0 {
		countries = []string{"US"}
	}
	return Targeting{
		AgeMin:       18,
		AgeMax:       65,
		Genders:      []int{1, 2},
		GeoLocations: map[string]any{"countries": countries},
		Interests:    topicsToInterests(v.Topics),
		FlexibleSpec: []flexibleEntry{{Interests: productsToInterests(v.RelevantProducts)}},
	}
}

func firstTopic(v model.IntentVerdict) string {
	if len(v.Topics) > 0 && v.Topics[0] != "" {
		return v.Topics[0]
	}
	return "General"
}
