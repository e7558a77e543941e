package handlers

import (
	"html/template"
	"net/http"
)

type indexRoute struct {
	Path        string
	Description string
}

var indexRoutes = []indexRoute{
	{routePrecipitation, "Precipitation by date over the last year of data"},
	{routeStations, "Stations that reported at least one measurement"},
	{routeCatalog, "Station names, coordinates and elevation"},
	{routeTobs, "Temperature observations over the last year of data"},
	{"/api/v1.0/<start>", "Daily min/avg/max temperature from start (YYYY-MM-DD)"},
	{"/api/v1.0/<start>/<end>", "Daily min/avg/max temperature from start through end"},
	{routeDocs, "API documentation"},
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Hawaii Climate API</title>
</head>
<body>
    <h1>Hawaii Climate API</h1>
    <p>Available routes:</p>
    <ul>
    {{- range .}}
        <li><code>{{.Path}}</code> {{.Description}}</li>
    {{- end}}
    </ul>
</body>
</html>`))

// Index handles GET / with a list of the available routes
func (h *ClimateHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, indexRoutes); err != nil {
		h.logger.Error(r.Context(), "[API_INDEX_ERROR] Failed to render index", nil, err)
	}
}
