package http

import (
	"net/http"

	"github.com/go-chi/render"

	"cptmerge/internal/chart"
	api "cptmerge/pkg/contracts/api/v1"
	"cptmerge/pkg/contracts/domain"
)

// Variables handles GET /api/v1/variables: the axis settings that drive
// the x variable selector and slider, plus the soil zone table.
func Variables(w http.ResponseWriter, r *http.Request) {
	axes := chart.AllAxes()
	resp := api.VariablesResponse{
		Variables: make([]api.VariableInfo, 0, len(axes)),
		Zones:     domain.SoilZones,
	}
	for _, a := range axes {
		resp.Variables = append(resp.Variables, api.VariableInfo{
			Name:       a.Variable,
			Title:      a.Title,
			MajorTick:  a.MajorTick,
			MinorTick:  a.MinorTick,
			DefaultMax: a.DefaultMax,
			SliderMax:  a.SliderMax,
		})
	}
	render.JSON(w, r, resp)
}
