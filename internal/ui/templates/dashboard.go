package templates

import "sales-dashboard/internal/models"

// chartSignals seeds the three chart signals so data-effect has something
// to read before the first /sse/charts response.
func chartSignals() models.Charts {
	return models.Charts{
		Main:     models.ChartSpec{Role: models.RoleMain, Series: []models.Series{}, Empty: true},
		Category: models.ChartSpec{Role: models.RoleCategory, Series: []models.Series{}, Empty: true},
		Region:   models.ChartSpec{Role: models.RoleRegion, Series: []models.Series{}, Empty: true},
	}
}

type chartPanel struct {
	id, signal string
}

var chartPanels = []chartPanel{
	{"main-chart", "mainChart"},
	{"category-chart", "categoryChart"},
	{"region-chart", "regionChart"},
}

// effect redraws the panel whenever its chart signal changes.
func (p chartPanel) effect() string {
	return "renderChart('" + p.id + "', $" + p.signal + ")"
}
