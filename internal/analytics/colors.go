package analytics

import "budget/internal/core"

// DefaultCategoryColor is used for categories outside the enumeration.
const DefaultCategoryColor = "#BDBDBD"

var categoryColors = map[core.Category]string{
	core.Food:          "#FFA726",
	core.Rent:          "#29B6F6",
	core.Groceries:     "#66BB6A",
	core.Entertainment: "#AB47BC",
	core.Other:         "#FF7043",
}

// CategoryColor returns the chart colour of c.
func CategoryColor(c core.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return DefaultCategoryColor
}
