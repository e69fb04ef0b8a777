package constants

// SourceCodes maps a scraper source name to the four-letter code embedded in
// REID identifiers. The table is static; adding a source means adding a row
// here and redeploying.
var SourceCodes = map[string]string{
	"Bali Properties for Sale":      "BOFS",
	"Teal Estate":                   "TEST",
	"Bali Property Direct":          "BPOD",
	"Bali Real Estate Consultants":  "BREC",
	"Bali Realty":                   "BREL",
	"Bali Select":                   "BSEL",
	"Bali Treasure Properties":      "BTPR",
	"Heritage Bali":                 "HRTB",
	"Unreal Bali":                   "URLB",
	"Exotiq Property":               "EXCP",
	"Kibarer":                       "KIBR",
	"Paradise Property Group":       "PPGB",
	"Lazudi":                        "LAZD",
	"Suasa Real Estate":             "SURE",
	"Svaha Property":                "SVHP",
	"Luxindo Property":              "LUXP",
	"Raja Villa Property":           "RJVP",
	"GD&ASSOCIATES":                 "GDAC",
	"Bali Home Immo":                "BHIM",
	"Propertia":                     "PROP",
	"Bali Exception":                "BEXC",
	"Villas of Bali":                "VOFB",
	"Dot Property":                  "DOTP",
	"Bali Coconut Living":           "BCLV",
	"Ray White Indonesia":           "RWID",
	"Bali Moves":                    "BLMV",
	"Ubud Property":                 "UBPR",
}

// BlacklistDomains lists sites whose URLs are never admitted to the recheck
// queue (dead sites, agencies that asked to be excluded, duplicate feeds).
var BlacklistDomains = map[string]struct{}{
	"mirahdevelopments.com":   {},
	"balicoconutliving.com":   {},
	"bodyfactoryproperty.com": {},
	"propertia.com":           {},
	"century21.co.id":         {},
	"balirealty.com":          {},
	"bali-home-immo.com":      {},
	"addressbali.com":         {},
	"antagroup.info":          {},
	"cangguproperti.com":      {},
	"geonet.properties":       {},
	"parqdevelopment.com":     {},
}
