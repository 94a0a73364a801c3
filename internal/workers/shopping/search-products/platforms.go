package searchproducts

import (
	"strings"

	"shopwhiz/internal/models"
)

const (
	genericPlatformID  = "web"
	genericPlaceholder = "/placeholder.svg"
)

type platformSpec struct {
	platform    models.Platform
	domains     []string
	exclude     []string
	placeholder string
}

var platformTable = map[string]platformSpec{
	"amazon": {
		platform:    models.Platform{ID: "amazon", Name: "Amazon", Logo: "🛒", Color: "#FFD700"},
		domains:     []string{"amazon.in", "amazon.com"},
		exclude:     []string{"flipkart.com", "myntra.com", "ajio.com"},
		placeholder: "/placeholder-amazon.png",
	},
	"flipkart": {
		platform:    models.Platform{ID: "flipkart", Name: "Flipkart", Logo: "🛍️", Color: "#00FFFF"},
		domains:     []string{"flipkart.com"},
		exclude:     []string{"amazon.in", "amazon.com", "myntra.com", "ajio.com"},
		placeholder: "/placeholder-flipkart.png",
	},
	"myntra": {
		platform:    models.Platform{ID: "myntra", Name: "Myntra", Logo: "👗", Color: "#FF69B4"},
		domains:     []string{"myntra.com"},
		exclude:     []string{"amazon.in", "amazon.com", "flipkart.com", "ajio.com"},
		placeholder: "/placeholder-myntra.png",
	},
	"ajio": {
		platform:    models.Platform{ID: "ajio", Name: "Ajio", Logo: "🎽", Color: "#FFFFFF"},
		domains:     []string{"ajio.com"},
		exclude:     []string{"amazon.in", "amazon.com", "flipkart.com", "myntra.com"},
		placeholder: "/placeholder-ajio.png",
	},
	genericPlatformID: {
		platform: models.Platform{ID: genericPlatformID, Name: "Web", Logo: "🌐", Color: "#E0E0E0"},
	},
}

// lookupPlatform never fails: unknown ids keep their identity with the
// generic presentation and no domain constraints.
func lookupPlatform(id string) platformSpec {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		id = genericPlatformID
	}
	if spec, ok := platformTable[id]; ok {
		return spec
	}
	spec := platformTable[genericPlatformID]
	spec.platform.ID = id
	spec.platform.Name = strings.ToUpper(id[:1]) + id[1:]
	return spec
}

// allowsHost reports whether host belongs to an allow-listed domain. A
// platform without an allow-list accepts every host.
func (s platformSpec) allowsHost(host string) bool {
	if len(s.domains) == 0 {
		return true
	}
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for _, d := range s.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
