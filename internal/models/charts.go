package models

type ChartRole string

const (
	RoleMain     ChartRole = "main"
	RoleCategory ChartRole = "category"
	RoleRegion   ChartRole = "region"
)

// ChartSpec is a render-ready chart description with no ties to any
// particular charting library.
type ChartSpec struct {
	Role   ChartRole `json:"role"`
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	XAxis  string    `json:"xAxis,omitempty"`
	YAxis  string    `json:"yAxis,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	Series []Series  `json:"series"`
	Empty  bool      `json:"empty"`
}

type Series struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Points []Point `json:"points"`
}

type Point struct {
	X    string            `json:"x"`
	Y    float64           `json:"y"`
	Meta map[string]string `json:"meta,omitempty"`
}

type Charts struct {
	Main     ChartSpec `json:"mainChart"`
	Category ChartSpec `json:"categoryChart"`
	Region   ChartSpec `json:"regionChart"`
}

// Empty reports whether the charts were built from a view with no records.
func (c Charts) Empty() bool {
	return c.Main.Empty && c.Category.Empty && c.Region.Empty
}
