package recycle

import "strings"

const CategoryOther = "Other"

// Classify returns the recycling category for a free-text item description.
// Matching is case-insensitive: exact names first, then keywords, most
// specific first. Unrecognized items are Other.
func Classify(item string) string {
	name := strings.ToLower(strings.TrimSpace(item))
	if name == "" {
		return CategoryOther
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	for _, entry := range keywordMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return CategoryOther
}

var exactMatch = map[string]string{
	"pc":         "Computers",
	"imac":       "Computers",
	"macbook":    "Computers",
	"chromebook": "Computers",
	"iphone":     "Phones",
	"android":    "Phones",
	"ipad":       "Tablets",
	"kindle":     "Tablets",
	"e-reader":   "Tablets",
	"tv":         "TVs & Monitors",
	"crt":        "TVs & Monitors",
	"aa":         "Batteries",
	"aaa":        "Batteries",
	"usb":        "Cables & Accessories",
	"hdmi":       "Cables & Accessories",
	"ps4":        "Gaming",
	"ps5":        "Gaming",
	"xbox":       "Gaming",
	"switch":     "Gaming",
}

// keywordMatches is ordered so longer phrases win over the shorter words
// they contain ("phone charger" before "phone").
var keywordMatches = []struct {
	keyword  string
	category string
}{
	{"phone charger", "Cables & Accessories"},
	{"laptop charger", "Cables & Accessories"},
	{"power adapter", "Cables & Accessories"},
	{"power cord", "Cables & Accessories"},
	{"extension cord", "Cables & Accessories"},
	{"charging cable", "Cables & Accessories"},
	{"laptop battery", "Batteries"},
	{"phone battery", "Batteries"},
	{"car battery", "Batteries"},
	{"game console", "Gaming"},
	{"controller", "Gaming"},
	{"console", "Gaming"},

	{"laptop", "Computers"},
	{"notebook computer", "Computers"},
	{"desktop", "Computers"},
	{"computer", "Computers"},
	{"motherboard", "Computers"},
	{"hard drive", "Computers"},
	{"server", "Computers"},
	{"keyboard", "Computers"},
	{"mouse", "Computers"},

	{"smartphone", "Phones"},
	{"cell phone", "Phones"},
	{"mobile", "Phones"},
	{"phone", "Phones"},

	{"tablet", "Tablets"},
	{"ereader", "Tablets"},

	{"television", "TVs & Monitors"},
	{"monitor", "TVs & Monitors"},
	{"display", "TVs & Monitors"},
	{"projector", "TVs & Monitors"},

	{"microwave", "Appliances"},
	{"refrigerator", "Appliances"},
	{"fridge", "Appliances"},
	{"washing machine", "Appliances"},
	{"dryer", "Appliances"},
	{"toaster", "Appliances"},
	{"kettle", "Appliances"},
	{"vacuum", "Appliances"},
	{"printer", "Appliances"},
	{"blender", "Appliances"},

	{"lithium", "Batteries"},
	{"battery", "Batteries"},
	{"batteries", "Batteries"},
	{"power bank", "Batteries"},

	{"headphone", "Audio"},
	{"earbud", "Audio"},
	{"speaker", "Audio"},
	{"stereo", "Audio"},
	{"radio", "Audio"},

	{"cable", "Cables & Accessories"},
	{"charger", "Cables & Accessories"},
	{"adapter", "Cables & Accessories"},
	{"cord", "Cables & Accessories"},
	{"router", "Cables & Accessories"},
	{"modem", "Cables & Accessories"},
}
