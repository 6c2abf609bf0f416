package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"proveia-agent/internal/domain"
)

// intentRule maps an utterance pattern to a registry search intent. Rules
// are matched in order against the normalized utterance and the first match
// wins, so more specific categories (logística) must come before patterns
// that would otherwise swallow them (paquetería/courier).
type intentRule struct {
	pattern *regexp.Regexp
	intent  domain.SearchIntent
}

var intentRules = []intentRule{
	{
		pattern: regexp.MustCompile(`gasolin`),
		intent: domain.SearchIntent{
			Terms:           []string{"gasolinera", "468411"},
			Display:         "gasolineras",
			PlaceCategories: "service.fuel,transport.fuel",
		},
	},
	{
		pattern: regexp.MustCompile(`ferreter|tlapaler`),
		intent: domain.SearchIntent{
			Terms:           []string{"ferretería", "467111", "tlapalería"},
			Display:         "ferreterías",
			PlaceCategories: "commercial.hardware,commercial.tools",
		},
	},
	{
		pattern: regexp.MustCompile(`papeler`),
		intent: domain.SearchIntent{
			Terms:           []string{"papelería", "465910"},
			Display:         "papelerías",
			PlaceCategories: "commercial.stationery,commercial.books",
		},
	},
	{
		pattern: regexp.MustCompile(`farmaci`),
		intent: domain.SearchIntent{
			Terms:           []string{"farmacia", "464111"},
			Display:         "farmacias",
			PlaceCategories: "healthcare.pharmacy",
		},
	},
	{
		pattern: regexp.MustCompile(`metal|acero|herrer`),
		intent: domain.SearchIntent{
			Terms:           []string{"metal", "331", "acero", "herrería"},
			Display:         "proveedores de metal",
			PlaceCategories: "commercial.metal,commercial.wholesale",
		},
	},
	{
		pattern: regexp.MustCompile(`restauran|comida|comer`),
		intent: domain.SearchIntent{
			Terms:           []string{"restaurante", "722"},
			Display:         "restaurantes",
			PlaceCategories: "catering.restaurant",
		},
	},
	{
		pattern: regexp.MustCompile(`supermerc|abarrot`),
		intent: domain.SearchIntent{
			Terms:           []string{"supermercado", "462111", "abarrotes"},
			Display:         "supermercados",
			PlaceCategories: "commercial.supermarket,commercial.food",
		},
	},
	{
		// Kept ahead of paquetería so logistics queries do not degrade to
		// courier results.
		pattern: regexp.MustCompile(`logisti`),
		intent: domain.SearchIntent{
			Terms:           []string{"logística", "transporte de carga", "almacenamiento"},
			Display:         "empresas de logística",
			PlaceCategories: "service.logistics,transport.truck",
		},
	},
	{
		pattern: regexp.MustCompile(`paquet|mensaj|courier`),
		intent: domain.SearchIntent{
			Terms:           []string{"paquetería", "mensajería", "492110"},
			Display:         "empresas de paquetería",
			PlaceCategories: "service.delivery,service.postal",
		},
	},
	{
		pattern: regexp.MustCompile(`refacci|autoparte|repuesto`),
		intent: domain.SearchIntent{
			Terms:           []string{"refacciones", "468420", "autopartes"},
			Display:         "refaccionarias",
			PlaceCategories: "transport.car_repair,commercial.wholesale",
		},
	},
	{
		pattern: regexp.MustCompile(`banco`),
		intent: domain.SearchIntent{
			Terms:           []string{"banco", "522"},
			Display:         "bancos",
			PlaceCategories: "service.financial,service.bank",
		},
	},
	{
		pattern: regexp.MustCompile(`hotel|hospeda`),
		intent: domain.SearchIntent{
			Terms:           []string{"hotel", "721"},
			Display:         "hoteles",
			PlaceCategories: "accommodation.hotel",
		},
	},
	{
		pattern: regexp.MustCompile(`construc|material|cemento|arena`),
		intent: domain.SearchIntent{
			Terms:           []string{"construcción", "467114", "materiales"},
			Display:         "materiales de construcción",
			PlaceCategories: "commercial.building_materials",
		},
	},
	{
		pattern: regexp.MustCompile(`plastic`),
		intent: domain.SearchIntent{
			Terms:           []string{"plástico", "326", "plasticos"},
			Display:         "proveedores de plástico",
			PlaceCategories: "commercial.wholesale",
		},
	},
	{
		pattern: regexp.MustCompile(`textil|tela|tejido|fabric`),
		intent: domain.SearchIntent{
			Terms:           []string{"telas", "textiles", "fabrica de textiles", "314"},
			Display:         "proveedores textiles",
			PlaceCategories: "commercial.textiles,commercial.fabric",
		},
	},
}

var (
	fallbackNoise    = regexp.MustCompile(`busca|buscar|encuentra|quiero|necesito|dame|en|de|la|el|los|las|cerca|proveedores?`)
	limitPattern     = regexp.MustCompile(`(?i)(?:los\s+)?(\d+)\s+mejores|top\s+(\d+)|primeros?\s+(\d+)`)
	radiusPattern    = regexp.MustCompile(`(?i)\d+\s*(km|kilómetros|metros|m\b)`)
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\ben\s+([a-záéíóúñ]+(?:\s+[a-záéíóúñ]+)?)`),
		regexp.MustCompile(`(?i)\bde\s+([a-záéíóúñ]+(?:\s+[a-záéíóúñ]+)?)`),
		regexp.MustCompile(`(?i)\bcerca\s+de\s+([a-záéíóúñ]+(?:\s+[a-záéíóúñ]+)?)`),
	}
	searchVerbPattern = regexp.MustCompile(`(?:busca|buscar|encuentra|encontrar|dame|necesito|quiero)\s+(?:proveedores?\s+(?:de|en)\s+\w+|gasolineras|ferreterias|farmacias|hoteles|restaurantes|papelerias)`)
)

// knownCities is checked before the prepositional patterns so multi-word
// city names win over a partial "en X" capture.
var knownCities = []string{
	"monterrey", "guadalajara", "ciudad de méxico", "cdmx", "puebla", "tijuana",
	"león", "zapopan", "mérida", "san luis potosí", "querétaro", "toluca",
	"cancún", "chihuahua", "saltillo", "aguascalientes", "morelia", "hermosillo",
	"culiacán", "veracruz", "mexicali", "acapulco", "cuernavaca", "oaxaca",
	"san pedro", "guadalupe", "santa catarina", "escobedo", "apodaca",
	"nuevo león", "jalisco", "guanajuato", "yucatán", "quintana roo",
}

var locationStopWords = map[string]bool{
	"la": true, "el": true, "los": true, "las": true,
	"un": true, "una": true, "mi": true, "tu": true, "su": true,
}

// normalizeText lowercases the utterance and strips diacritics so the rule
// patterns match "gasolinería" and "gasolineria" alike.
func normalizeText(s string) string {
	lower := strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, lower)
	if err != nil {
		return lower
	}
	return out
}

// extractIntent resolves the utterance to a search intent. It is a pure
// function and never fails: when no rule matches it degrades to up to two
// content words and a generic display label.
func extractIntent(text string) domain.SearchIntent {
	normalized := normalizeText(text)

	for _, rule := range intentRules {
		if rule.pattern.MatchString(normalized) {
			intent := rule.intent
			intent.Limit = extractLimit(text)
			return intent
		}
	}

	stripped := fallbackNoise.ReplaceAllString(normalized, "")
	var keywords []string
	for _, word := range strings.Fields(stripped) {
		if utf8.RuneCountInString(word) > 3 {
			keywords = append(keywords, word)
		}
		if len(keywords) == 2 {
			break
		}
	}

	term := "comercio"
	if len(keywords) > 0 {
		term = strings.Join(keywords, " ")
	}
	return domain.SearchIntent{
		Terms:   []string{term},
		Display: "proveedores",
		Limit:   extractLimit(text),
	}
}

// extractLimit returns a requested result cap ("los 5 mejores", "top 10"),
// or 0 when absent or out of the 1..50 range.
func extractLimit(text string) int {
	m := limitPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	var digits string
	for _, g := range m[1:] {
		if g != "" {
			digits = g
			break
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	if n > 0 && n <= 50 {
		return n
	}
	return 0
}

// containsRadius reports whether the utterance names an explicit distance
// with a unit. Presence only suppresses the radius question; the effective
// radius still comes from the request argument or the default.
func containsRadius(text string) bool {
	return radiusPattern.MatchString(text)
}

// extractLocationPhrase pulls a location phrase out of the utterance:
// curated city names first, then prepositional patterns with a stop-word
// filter. Returns "" when nothing usable is found.
func extractLocationPhrase(text string) string {
	lower := strings.ToLower(text)

	for _, city := range knownCities {
		if strings.Contains(lower, city) {
			return city
		}
	}

	for _, pattern := range locationPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil || m[1] == "" {
			continue
		}
		if locationStopWords[strings.ToLower(m[1])] {
			continue
		}
		return m[1]
	}
	return ""
}

// isCoverageQuestion detects questions about service coverage ("¿qué
// ciudades cubres?") that should be answered directly instead of running
// the search pipeline. A concrete search phrase always wins over the
// coverage heuristic.
func isCoverageQuestion(text string) bool {
	lower := normalizeText(text)

	locationWords := containsAny(lower,
		"ubicaciones", "ciudades", "lugares", "estados",
		"municipios", "zonas", "regiones", "areas")
	infoWords := containsAny(lower,
		"tienes", "tiene", "hay", "cubres", "manejas", "disponibles",
		"que ubicaciones", "cuales ubicaciones", "donde tienes", "saber",
		"conocer", "ver si", "lista", "informacion", "cobertura",
		"cuantos", "cuantas")

	return locationWords && infoWords && !searchVerbPattern.MatchString(lower)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
