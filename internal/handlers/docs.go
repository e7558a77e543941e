package handlers

import (
	"encoding/json"
	"net/http"
)

func jsonContent(schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schema},
	}
}

func errorResponses(codes ...string) map[string]interface{} {
	descriptions := map[string]string{
		"400": "Malformed date, expected YYYY-MM-DD",
		"404": "The measurement table is empty",
		"503": "Observation store unavailable",
	}

	responses := map[string]interface{}{}
	for _, code := range codes {
		responses[code] = map[string]interface{}{
			"description": descriptions[code],
			"content":     jsonContent(map[string]interface{}{"$ref": "#/components/schemas/Error"}),
		}
	}
	return responses
}

func withOK(description string, schema map[string]interface{}, errs map[string]interface{}) map[string]interface{} {
	errs["200"] = map[string]interface{}{
		"description": description,
		"content":     jsonContent(schema),
	}
	return errs
}

func dateParam(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      map[string]string{"type": "string", "format": "date"},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Climate API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	statsArray := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"$ref": "#/components/schemas/AggregateRow"},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Hawaii Climate API",
			"description": "Read-only precipitation and temperature reports over the Hawaii station dataset",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			routePrecipitation: map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Precipitation for the last year",
					"description": "One precipitation value per date within 365 days of the latest observation",
					"responses": withOK("Date to precipitation map", map[string]interface{}{
						"type":                 "object",
						"additionalProperties": map[string]string{"type": "number"},
					}, errorResponses("404", "503")),
				},
			},
			routeStations: map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Distinct station IDs",
					"responses": withOK("Sorted station IDs", map[string]interface{}{
						"type":  "array",
						"items": map[string]string{"type": "string"},
					}, errorResponses("503")),
				},
			},
			routeCatalog: map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Station reference data",
					"responses": withOK("Stations ordered by ID", map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"$ref": "#/components/schemas/Station"},
					}, errorResponses("503")),
				},
			},
			routeTobs: map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Temperature observations for the last year",
					"responses": withOK("Observations ordered by date and station", map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"$ref": "#/components/schemas/TemperatureReading"},
					}, errorResponses("404", "503")),
				},
			},
			routeStart: map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Daily temperature statistics from a start date",
					"description": "Min, average and max temperature for every date on or after start",
					"parameters":  []map[string]interface{}{dateParam("start", "First date, inclusive")},
					"responses":   withOK("Rows ordered by date", statsArray, errorResponses("400", "503")),
				},
			},
			routeStartEnd: map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Daily temperature statistics for a date range",
					"description": "Min, average and max temperature for every date in [start, end]. A reversed range returns an empty array.",
					"parameters": []map[string]interface{}{
						dateParam("start", "First date, inclusive"),
						dateParam("end", "Last date, inclusive"),
					},
					"responses": withOK("Rows ordered by date", statsArray, errorResponses("400", "503")),
				},
			},
			routeHealth: map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Observation store reachable"},
						"503": map[string]interface{}{"description": "Observation store unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"AggregateRow": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"date": map[string]string{"type": "string", "format": "date"},
						"min":  map[string]string{"type": "number"},
						"avg":  map[string]string{"type": "number"},
						"max":  map[string]string{"type": "number"},
					},
				},
				"TemperatureReading": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"station_id": map[string]string{"type": "string"},
						"date":       map[string]string{"type": "string", "format": "date"},
						"tobs":       map[string]string{"type": "number"},
					},
				},
				"Station": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"station_id": map[string]string{"type": "string"},
						"name":       map[string]string{"type": "string"},
						"latitude":   map[string]interface{}{"type": "number", "nullable": true},
						"longitude":  map[string]interface{}{"type": "number", "nullable": true},
						"elevation":  map[string]interface{}{"type": "number", "nullable": true},
					},
				},
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
