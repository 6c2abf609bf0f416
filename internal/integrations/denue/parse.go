package denue

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"proveia-agent/internal/domain"
)

const (
	fallbackName     = "Sin nombre"
	fallbackCategory = "Sin categoría"
)

// parseProviders handles both payload shapes the registry is known to emit:
// a JSON array of records with inconsistent key casing, and the legacy
// pipe-delimited lines format. Records that cannot be parsed are dropped
// rather than failing the whole response.
func parseProviders(body string) []domain.Provider {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "[") {
		var items []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			providers := make([]domain.Provider, 0, len(items))
			for _, item := range items {
				providers = append(providers, providerFromJSON(item))
			}
			return providers
		}
	}
	return providersFromPipes(trimmed)
}

// Key names vary between registry deployments, so every field is looked up
// under each known spelling.
func providerFromJSON(item map[string]any) domain.Provider {
	p := domain.Provider{
		ID:           stringField(item, "Id", "id"),
		Name:         stringField(item, "Nombre", "nom_estab"),
		Category:     stringField(item, "Clase_actividad", "nombre_act"),
		Description:  stringField(item, "Clase_actividad", "clase_actividad"),
		LocationName: stringField(item, "Ubicacion", "localidad"),
		Latitude:     floatField(item, "Latitud", "latitud"),
		Longitude:    floatField(item, "Longitud", "longitud"),
		Phone:        stringField(item, "Telefono", "telefono"),
		Email:        stringField(item, "Correo_e", "correoelec"),
		Website:      stringField(item, "Sitio_internet", "www"),
		Address:      formatAddress(item),
		SCIANCode:    stringField(item, "Codigo_SCIAN", "cve_scian"),
		Stratum:      stringField(item, "Estrato", "per_ocu"),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Name == "" {
		p.Name = fallbackName
	}
	if p.Category == "" {
		p.Category = fallbackCategory
	}
	return p
}

func formatAddress(item map[string]any) string {
	roadType := stringField(item, "Tipo_vialidad", "tipo_vialidad")
	road := stringField(item, "Calle", "nom_vial")
	number := stringField(item, "Num_Exterior", "numero_ext")
	settlement := stringField(item, "Colonia", "nomb_asent")
	postal := stringField(item, "CP", "cod_postal")

	parts := make([]string, 0, 5)
	for _, part := range []string{roadType, road, number, settlement} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if postal != "" {
		parts = append(parts, "CP "+postal)
	}
	return strings.Join(parts, " ")
}

// providersFromPipes parses the legacy format: one record per line, fields
// separated by "|". Lines with fewer than 19 fields are skipped.
func providersFromPipes(body string) []domain.Provider {
	var providers []domain.Provider
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 19 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		p := domain.Provider{
			ID:           parts[1],
			Name:         parts[2],
			Category:     parts[4],
			Description:  parts[4],
			Stratum:      parts[5],
			Address:      joinNonEmpty(parts[6], parts[7], parts[8], parts[10], parts[11]),
			LocationName: parts[12],
			Phone:        parts[13],
			Email:        parts[14],
			Website:      parts[15],
			Longitude:    parseFloat(parts[17]),
			Latitude:     parseFloat(parts[18]),
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Name == "" {
			p.Name = fallbackName
		}
		if p.Category == "" {
			p.Category = fallbackCategory
		}
		providers = append(providers, p)
	}
	return providers
}

func stringField(item map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := item[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func floatField(item map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch v := item[key].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
