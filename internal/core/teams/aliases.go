package teams

// nflAliases are historical names and common shorthand (normalized alias ->
// canonical code).
var nflAliases = map[string]string{
	"niners":                   "SF",
	"bucs":                     "TB",
	"pats":                     "NE",
	"jags":                     "JAX",
	"washington football team": "WAS",
	"redskins":                 "WAS",
	"washington redskins":      "WAS",
	"oakland raiders":          "LV",
	"san diego chargers":       "LAC",
	"st louis rams":            "LA",
	"la rams":                  "LA",
	"la chargers":              "LAC",
	"ny giants":                "NYG",
	"ny jets":                  "NYJ",
	"football team":            "WAS",
}
